package validation

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"loan-service/internal/apperror"
)

type sample struct {
	Amount decimal.Decimal `json:"amount" validate:"decimal_gt=0,dec2"`
	Name   string          `json:"name" validate:"required,notblank,max=5"`
	Email  string          `json:"email" validate:"omitempty,email"`
	ID     uint64          `json:"id" validate:"required"`
}

type payment struct {
	Amount decimal.Decimal `json:"amount" validate:"money,decimal_gt=0,dec2"`
}

func containsFieldMsg(list []apperror.FieldError, field, substr string) bool {
	for _, e := range list {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func mustValidation(t *testing.T, err error) *apperror.ValidationError {
	t.Helper()
	ve, ok := apperror.AsValidation(err)
	if !ok {
		t.Fatalf("want *apperror.ValidationError, got %T (%v)", err, err)
	}
	return ve
}

func TestStruct_Valid(t *testing.T) {
	v := New()
	err := v.Struct(sample{Amount: decimal.RequireFromString("10.50"), Name: "Ann", ID: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStruct_CollectsEveryField(t *testing.T) {
	v := New()
	ve := mustValidation(t, v.Struct(sample{}))

	if len(ve.Fields) != 3 {
		t.Fatalf("want 3 field errors, got %+v", ve.Fields)
	}
	if !containsFieldMsg(ve.Fields, "amount", "greater than 0") {
		t.Fatalf("amount message missing: %+v", ve.Fields)
	}
	if !containsFieldMsg(ve.Fields, "name", "is required") {
		t.Fatalf("name message missing: %+v", ve.Fields)
	}
	if !containsFieldMsg(ve.Fields, "id", "is required") {
		t.Fatalf("id message missing: %+v", ve.Fields)
	}
}

func TestStruct_DecimalRules(t *testing.T) {
	v := New()
	cases := []struct {
		amount string
		want   string
	}{
		{"-1", "greater than 0"},
		{"0.00", "greater than 0"},
		{"1.005", "at most 2 decimal places"},
	}
	for _, tc := range cases {
		ve := mustValidation(t, v.Struct(sample{Amount: decimal.RequireFromString(tc.amount), Name: "Ann", ID: 1}))
		if !containsFieldMsg(ve.Fields, "amount", tc.want) {
			t.Fatalf("amount %s: want %q in %+v", tc.amount, tc.want, ve.Fields)
		}
	}
}

func TestMoney(t *testing.T) {
	cases := map[string]bool{
		"0":                   true,
		"0.01":                true,
		"1.000":               true,
		"9999999999999999.99": true,
		"10000000000000000":   false,
		"1e17":                false,
		"1e-19":               false,
		"1e5000000":           false,
		"1e-5000000":          false,
		"-9999999999999999":   true,
	}
	for in, want := range cases {
		if got := Money(decimal.RequireFromString(in)); got != want {
			t.Fatalf("Money(%s) = %v, want %v", in, got, want)
		}
	}
}

func TestStruct_MoneyBounds(t *testing.T) {
	v := New()

	if err := v.Struct(payment{Amount: decimal.RequireFromString("9999999999999999.99")}); err != nil {
		t.Fatalf("largest column value rejected: %v", err)
	}
	for _, amount := range []string{"10000000000000000", "100000000000000000"} {
		ve := mustValidation(t, v.Struct(payment{Amount: decimal.RequireFromString(amount)}))
		if len(ve.Fields) != 1 || !containsFieldMsg(ve.Fields, "amount", "at most 16 integer digits") {
			t.Fatalf("amount %s: %+v", amount, ve.Fields)
		}
	}
}

func TestStruct_HugeExponentRejectedQuickly(t *testing.T) {
	v := New()
	for _, raw := range []string{`{"amount":1e5000000}`, `{"amount":1e60000000}`, `{"amount":1e-60000000}`} {
		var in payment
		if err := json.Unmarshal([]byte(raw), &in); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}

		start := time.Now()
		ve := mustValidation(t, v.Struct(in))
		if took := time.Since(start); took > time.Second {
			t.Fatalf("%s took %v", raw, took)
		}
		if !containsFieldMsg(ve.Fields, "amount", "integer digits") {
			t.Fatalf("%s: %+v", raw, ve.Fields)
		}
	}
}

func TestStruct_StringRules(t *testing.T) {
	v := New()

	ve := mustValidation(t, v.Struct(sample{Amount: decimal.NewFromInt(1), Name: "   ", ID: 1}))
	if !containsFieldMsg(ve.Fields, "name", "must not be blank") {
		t.Fatalf("blank name: %+v", ve.Fields)
	}

	ve = mustValidation(t, v.Struct(sample{Amount: decimal.NewFromInt(1), Name: "toolong", ID: 1, Email: "nope"}))
	if !containsFieldMsg(ve.Fields, "name", "at most 5") || !containsFieldMsg(ve.Fields, "email", "valid email") {
		t.Fatalf("string rules: %+v", ve.Fields)
	}
}

func TestStruct_NonStructPassesThrough(t *testing.T) {
	v := New()
	err := v.Struct(42)
	if err == nil {
		t.Fatal("want error for non-struct")
	}
	if _, ok := apperror.AsValidation(err); ok {
		t.Fatal("non-struct must not become a ValidationError")
	}
}

func TestToFieldErrors_NonValidationError(t *testing.T) {
	got := ToFieldErrors(errors.New("boom"))
	if len(got) != 1 || got[0].Field != "_" || got[0].Message != "boom" {
		t.Fatalf("got %+v", got)
	}
}
