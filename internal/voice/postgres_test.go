package voice

import (
	"database/sql"
	"fmt"
	"testing"
	"time"
)

// nullableRow feeds scanCall one row of column values, applying the same rule
// database/sql does: a SQL NULL is only accepted by sql.Scanner destinations
// and by pointer destinations.
type nullableRow struct {
	vals []any
}

func (r nullableRow) Scan(dests ...any) error {
	if len(dests) != len(r.vals) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dests), len(r.vals))
	}
	for i, dst := range dests {
		src := r.vals[i]
		if scanner, ok := dst.(sql.Scanner); ok {
			if err := scanner.Scan(src); err != nil {
				return err
			}
			continue
		}
		if src == nil {
			switch d := dst.(type) {
			case **time.Time:
				*d = nil
			case *[]byte:
				*d = nil
			default:
				return fmt.Errorf("sql: converting NULL to %T is unsupported", dst)
			}
			continue
		}
		switch d := dst.(type) {
		case *string:
			*d = src.(string)
		case *CallStatus:
			*d = CallStatus(src.(string))
		case *int:
			*d = src.(int)
		case *time.Time:
			*d = src.(time.Time)
		case **time.Time:
			v := src.(time.Time)
			*d = &v
		case *[]byte:
			*d = src.([]byte)
		default:
			return fmt.Errorf("scan: unsupported destination %T", dst)
		}
	}
	return nil
}

// A freshly created call has NULLs in every lifecycle and analysis column;
// scanCall must read such a row without a conversion error.
func TestScanCallToleratesNullLifecycleColumns(t *testing.T) {
	now := time.Now().UTC()
	row := nullableRow{vals: []any{
		"call-1", "org-1", // id, organization_id
		nil, nil, nil, nil, // contact_id, activity_id, campaign_id, external_call_id
		"+15550001", "initiated", // phone_number, status
		"Hello!", "Hello!", // script, first_message
		nil, nil, nil, // started_at, ended_at, duration_seconds
		nil, nil, nil, // transcript, recording_url, ended_reason
		nil, nil, nil, nil, nil, nil, nil, // sentiment .. analysis
		now, now, // created_at, updated_at
	}}

	var c Call
	if err := scanCall(row, &c); err != nil {
		t.Fatalf("scanCall: %v", err)
	}
	if c.ID != "call-1" || c.Status != CallStatusInitiated {
		t.Errorf("call = %+v", c)
	}
	if c.StartedAt != nil || c.Transcript != "" || c.DurationSeconds != 0 || c.DealScore != 0 {
		t.Errorf("null columns should scan to zero values, got %+v", c)
	}
}

func TestScanCallReadsPopulatedRow(t *testing.T) {
	now := time.Now().UTC()
	started := now.Add(-2 * time.Minute)
	row := nullableRow{vals: []any{
		"call-1", "org-1",
		"contact-1", "activity-1", nil, "ext-1",
		"+15550001", "completed",
		"Hello!", "Hello!",
		started, now, 120,
		"user: hi", "https://rec.example/1", "hangup",
		"positive", []byte(`["pricing"]`), []byte(`[]`), []byte(`[]`), 80, "went well", []byte(`{}`),
		now, now,
	}}

	var c Call
	if err := scanCall(row, &c); err != nil {
		t.Fatalf("scanCall: %v", err)
	}
	if c.ContactID != "contact-1" || c.ExternalCallID != "ext-1" {
		t.Errorf("ids = %+v", c)
	}
	if c.DurationSeconds != 120 || c.Transcript != "user: hi" || c.DealScore != 80 {
		t.Errorf("lifecycle fields = %+v", c)
	}
	if c.StartedAt == nil || !c.StartedAt.Equal(started) {
		t.Errorf("started at = %v", c.StartedAt)
	}
	if len(c.Topics) != 1 || c.Topics[0] != "pricing" {
		t.Errorf("topics = %v", c.Topics)
	}
}
