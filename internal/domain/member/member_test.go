package member

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(1990, time.March, 14)

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(b) != `"1990-03-14"` {
		t.Fatalf("got %s, want %q", b, "1990-03-14")
	}

	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip changed the date: %v != %v", back, d)
	}
}

func TestDateUnmarshalRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"wrong_layout", `"14.03.1990"`},
		{"with_time", `"1990-03-14T00:00:00Z"`},
		{"not_a_date", `"yesterday"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			if err := json.Unmarshal([]byte(tt.in), &d); err == nil {
				t.Fatalf("expected %s to be rejected", tt.in)
			}
		})
	}
}

func TestNewFromCreateRequestDefaults(t *testing.T) {
	m := NewFromCreateRequest(CreateMemberRequest{
		Name:       "Jane Doe",
		Email:      "jane@example.com",
		BirthDate:  "1990-03-14",
		Address:    "Main St 1",
		City:       "Springfield",
		PostalCode: "12345",
	})

	if m.ID == "" {
		t.Fatal("expected a generated id")
	}
	if !m.Active {
		t.Fatal("active must default to true")
	}
	if m.TotalAmountReceived != 0 {
		t.Fatalf("total must default to 0, got %v", m.TotalAmountReceived)
	}
	if m.BirthDate.String() != "1990-03-14" {
		t.Fatalf("got birth date %s", m.BirthDate)
	}
	if m.JoinDate.String() != time.Now().UTC().Format("2006-01-02") {
		t.Fatalf("join date must default to today, got %s", m.JoinDate)
	}
}

func TestNewFromCreateRequestOverrides(t *testing.T) {
	join := "2020-01-02"
	active := false
	total := 150.5

	m := NewFromCreateRequest(CreateMemberRequest{
		Name:                "Jane Doe",
		Email:               "jane@example.com",
		BirthDate:           "1990-03-14",
		Address:             "Main St 1",
		City:                "Springfield",
		PostalCode:          "12345",
		JoinDate:            &join,
		Active:              &active,
		TotalAmountReceived: &total,
	})

	if m.JoinDate.String() != join {
		t.Fatalf("got join date %s, want %s", m.JoinDate, join)
	}
	if m.Active {
		t.Fatal("explicit active=false must be kept")
	}
	if m.TotalAmountReceived != total {
		t.Fatalf("got total %v, want %v", m.TotalAmountReceived, total)
	}
}
