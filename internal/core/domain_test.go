package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false},
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("case %d expected ErrInvalidDate, got %v", i, err)
		}
	}
}

func TestDateTextRoundTrip(t *testing.T) {
	d := NewDate(2024, 3, 9)
	b, err := d.MarshalText()
	if err != nil || string(b) != "2024-03-09" {
		t.Fatalf("marshal: %q err=%v", b, err)
	}
	var back Date
	if err := back.UnmarshalText(b); err != nil || !back.Equal(d.Time) {
		t.Fatalf("unmarshal: %v err=%v", back, err)
	}
	if b, _ := (Date{}).MarshalText(); len(b) != 0 {
		t.Fatalf("zero date should marshal empty, got %q", b)
	}
}

func TestLineItemInvalidAndGroupKey(t *testing.T) {
	li := LineItem{ID: "a", Issues: []Issue{IssueAssignedID, IssueAmbiguousAmount}}
	if li.Invalid() {
		t.Fatalf("warnings must not make an item invalid")
	}
	li.Issues = append(li.Issues, IssueInvalidPeriod)
	if !li.Invalid() {
		t.Fatalf("invalid period must make an item invalid")
	}
	if li.GroupKey() != "a" {
		t.Fatalf("standalone item should group under its own id")
	}
	li.GroupID = "g"
	if li.GroupKey() != "g" {
		t.Fatalf("group id should win")
	}
}

func TestRegistryEntry(t *testing.T) {
	good := RegistryEntry{Kind: RegistryProject, Name: "Reforma"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (RegistryEntry{Kind: "Other", Name: "x"}).Validate(); !errors.Is(err, ErrInvalidRegistryKind) {
		t.Fatalf("expected ErrInvalidRegistryKind, got %v", err)
	}
	if err := (RegistryEntry{Kind: RegistryCategory, Name: "  "}).Validate(); !errors.Is(err, ErrEmptyRegistryName) {
		t.Fatalf("expected ErrEmptyRegistryName, got %v", err)
	}
	if !good.SameAs(RegistryEntry{Kind: "projeto", Name: " reforma "}) {
		t.Fatalf("duplicates should be case-insensitive")
	}
}
