package cronspec

import (
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		expr    Expression
		wantErr bool
	}{
		{
			name: "every five minutes",
			expr: Expression{Minute: "*/5", Hour: "*", DayOfMonth: "*", Month: "*", DayOfWeek: "*"},
		},
		{
			name: "daily at 3am",
			expr: Expression{Minute: "0", Hour: "3", DayOfMonth: "*", Month: "*", DayOfWeek: "*"},
		},
		{
			name: "sunday as seven",
			expr: Expression{Minute: "30", Hour: "4", DayOfMonth: "*", Month: "*", DayOfWeek: "7"},
		},
		{
			name:    "minute out of range",
			expr:    Expression{Minute: "61", Hour: "*", DayOfMonth: "*", Month: "*", DayOfWeek: "*"},
			wantErr: true,
		},
		{
			name:    "garbage field",
			expr:    Expression{Minute: "soon", Hour: "*", DayOfMonth: "*", Month: "*", DayOfWeek: "*"},
			wantErr: true,
		},
		{
			name:    "empty fields",
			expr:    Expression{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%q) error = %v, wantErr %v", tt.expr.String(), err, tt.wantErr)
			}
		})
	}
}

func TestNextRun(t *testing.T) {
	t.Parallel()

	expr := Expression{Minute: "0", Hour: "3", DayOfMonth: "*", Month: "*", DayOfWeek: "*"}
	from := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	next, err := NextRun(expr, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 6, 2, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("NextRun = %v, want %v", next, want)
	}
}

func TestNextRunStrictlyAfter(t *testing.T) {
	t.Parallel()

	expr := Expression{Minute: "0", Hour: "3", DayOfMonth: "*", Month: "*", DayOfWeek: "*"}
	from := time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)

	next, err := NextRun(expr, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.After(from) {
		t.Fatalf("NextRun = %v, want strictly after %v", next, from)
	}
}

func TestExpressionString(t *testing.T) {
	t.Parallel()

	expr := Expression{Minute: "*/5", Hour: "2", DayOfMonth: "1", Month: "*", DayOfWeek: "0"}
	if got := expr.String(); got != "*/5 2 1 * 0" {
		t.Fatalf("String = %q, want %q", got, "*/5 2 1 * 0")
	}
}
