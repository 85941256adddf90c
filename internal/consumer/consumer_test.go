package consumer

import "testing"

func TestIsTooOldPrefersEnvelopeTimestamp(t *testing.T) {
	now := int64(1_712_000_000_000)
	fresh := now - 60_000 // 1 minute ago
	if isTooOld(fresh, 0, now) {
		t.Fatal("expected a 1-minute-old message to pass the age gate")
	}

	stale := now - 11*60_000 // 11 minutes ago
	if !isTooOld(stale, 0, now) {
		t.Fatal("expected an 11-minute-old message to fail the age gate")
	}
}

func TestIsTooOldFallsBackToBrokerTimestamp(t *testing.T) {
	now := int64(1_712_000_000_000)
	brokerFresh := now - 60_000
	if isTooOld(0, brokerFresh, now) {
		t.Fatal("expected broker timestamp fallback to pass the age gate")
	}

	brokerStale := now - 11*60_000
	if !isTooOld(0, brokerStale, now) {
		t.Fatal("expected broker timestamp fallback to fail the age gate")
	}
}
