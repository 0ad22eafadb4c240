package calendar

import (
	"testing"
	"time"
)

func testRow(t *testing.T, def *Definition, day string) Row {
	t.Helper()
	row, err := resolveRow(def, time.UTC, mustDate(t, day))
	if err != nil {
		t.Fatalf("resolveRow returned unexpected error: %v", err)
	}
	return row
}

func TestParseSide(t *testing.T) {
	for _, s := range []string{"both", "left", "right", "neither"} {
		if _, err := ParseSide(s); err != nil {
			t.Errorf("ParseSide(%q) returned unexpected error: %v", s, err)
		}
	}
	if _, err := ParseSide("middle"); err == nil {
		t.Error("ParseSide should reject unknown values")
	}
}

func TestBoundaryPolicyNoBreak(t *testing.T) {
	row := testRow(t, weekdayDef(), "2021-03-01")
	d := row.Session
	open := utc(d, 9, 30)
	closeAt := utc(d, 16, 0)

	cases := []struct {
		side            Side
		openOK, closeOK bool
	}{
		{SideBoth, true, true},
		{SideLeft, true, false},
		{SideRight, false, true},
		{SideNeither, false, false},
	}
	for _, tc := range cases {
		if got := row.isTradingMinute(open, tc.side); got != tc.openOK {
			t.Errorf("side %s: open minute = %v, want %v", tc.side, got, tc.openOK)
		}
		if got := row.isTradingMinute(closeAt, tc.side); got != tc.closeOK {
			t.Errorf("side %s: close minute = %v, want %v", tc.side, got, tc.closeOK)
		}
		// Interior minutes trade under every policy.
		if !row.isTradingMinute(utc(d, 12, 0), tc.side) {
			t.Errorf("side %s: interior minute should trade", tc.side)
		}
		// Outside the session nothing trades.
		if row.isTradingMinute(utc(d, 9, 29), tc.side) || row.isTradingMinute(utc(d, 16, 1), tc.side) {
			t.Errorf("side %s: out-of-session minutes should not trade", tc.side)
		}
	}
}

func TestBoundaryPolicyBreakLeft(t *testing.T) {
	// Break 12:00-13:00, policy left: 12:00 trades, 12:59 and 13:00 are
	// break minutes, 13:01 resumes trading.
	row := testRow(t, breakDef(), "2021-03-01")
	d := row.Session

	if !row.isTradingMinute(utc(d, 12, 0), SideLeft) {
		t.Error("12:00 should be a trading minute under left")
	}
	if !row.isBreakMinute(utc(d, 12, 59), SideLeft) {
		t.Error("12:59 should be a break minute under left")
	}
	if !row.isBreakMinute(utc(d, 13, 0), SideLeft) {
		t.Error("13:00 should be a break minute under left")
	}
	if row.isTradingMinute(utc(d, 13, 0), SideLeft) {
		t.Error("13:00 should not be a trading minute under left")
	}
	if !row.isTradingMinute(utc(d, 13, 1), SideLeft) {
		t.Error("13:01 should resume trading under left")
	}
}

func TestBoundaryPolicyBreakPairs(t *testing.T) {
	row := testRow(t, breakDef(), "2021-03-01")
	d := row.Session
	bs := utc(d, 12, 0)
	be := utc(d, 13, 0)

	cases := []struct {
		side         Side
		bsOK, beOK   bool
	}{
		{SideBoth, true, true},
		{SideLeft, true, false},
		{SideRight, false, true},
		{SideNeither, false, false},
	}
	for _, tc := range cases {
		if got := row.isTradingMinute(bs, tc.side); got != tc.bsOK {
			t.Errorf("side %s: break-start trading = %v, want %v", tc.side, got, tc.bsOK)
		}
		if got := row.isTradingMinute(be, tc.side); got != tc.beOK {
			t.Errorf("side %s: break-end trading = %v, want %v", tc.side, got, tc.beOK)
		}
		// Trading and break classification never overlap.
		for _, m := range []time.Time{bs, utc(d, 12, 30), be} {
			if row.isTradingMinute(m, tc.side) && row.isBreakMinute(m, tc.side) {
				t.Errorf("side %s: %v classified as both trading and break", tc.side, m)
			}
			if !row.isTradingMinute(m, tc.side) && !row.isBreakMinute(m, tc.side) {
				t.Errorf("side %s: %v inside break interval classified as neither", tc.side, m)
			}
		}
	}
}

func TestMinutesSequenceCounts(t *testing.T) {
	// 09:30-16:00 is 390 one-minute intervals, so 391 grid instants.
	row := testRow(t, weekdayDef(), "2021-03-01")

	counts := map[Side]int{
		SideBoth:    391,
		SideLeft:    390,
		SideRight:   390,
		SideNeither: 389,
	}
	for side, want := range counts {
		got := 0
		for range row.Minutes(side) {
			got++
		}
		if got != want {
			t.Errorf("side %s: %d minutes, want %d", side, got, want)
		}
	}
}

func TestMinutesSequenceBreakCounts(t *testing.T) {
	// 09:30-16:00 with a 12:00-13:00 break.
	row := testRow(t, breakDef(), "2021-03-01")

	counts := map[Side]int{
		SideBoth:    151 + 181, // [09:30..12:00] and [13:00..16:00]
		SideLeft:    151 + 179, // close and break-end dropped
		SideRight:   149 + 181, // open and break-start dropped
		SideNeither: 149 + 179,
	}
	for side, want := range counts {
		got := 0
		for range row.Minutes(side) {
			got++
		}
		if got != want {
			t.Errorf("side %s: %d minutes, want %d", side, got, want)
		}
	}
}

func TestMinutesSequenceOrderAndRestart(t *testing.T) {
	row := testRow(t, breakDef(), "2021-03-01")
	seq := row.Minutes(SideBoth)

	for pass := 0; pass < 2; pass++ {
		var prev time.Time
		n := 0
		for m := range seq {
			if n > 0 && !m.After(prev) {
				t.Fatalf("minutes not strictly ascending: %v then %v", prev, m)
			}
			if !row.isTradingMinute(m, SideBoth) {
				t.Fatalf("yielded minute %v is not a trading minute", m)
			}
			prev = m
			n++
		}
		if n == 0 {
			t.Fatalf("pass %d: sequence yielded nothing; it should be restartable", pass)
		}
	}
}

func TestMinutesSequenceEarlyStop(t *testing.T) {
	row := testRow(t, weekdayDef(), "2021-03-01")

	n := 0
	for range row.Minutes(SideBoth) {
		n++
		if n == 5 {
			break
		}
	}
	if n != 5 {
		t.Errorf("early break consumed %d minutes, want 5", n)
	}
}

func TestFirstLastTradingMinute(t *testing.T) {
	row := testRow(t, weekdayDef(), "2021-03-01")
	d := row.Session

	first, ok := row.firstTradingMinute(SideRight)
	if !ok || !first.Equal(utc(d, 9, 31)) {
		t.Errorf("first minute under right = %v, want 09:31", first)
	}
	last, ok := row.lastTradingMinute(SideLeft)
	if !ok || !last.Equal(utc(d, 15, 59)) {
		t.Errorf("last minute under left = %v, want 15:59", last)
	}
}
