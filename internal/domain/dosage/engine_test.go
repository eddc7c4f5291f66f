package dosage

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetpos/internal/core/apperror"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestConsume_WholeUnits(t *testing.T) {
	p := Profile{ProductID: "p1", DosesPerUnit: 10, Divisible: true}
	s := Stock{Units: 5, Doses: dec("3")}

	out, err := p.Consume(s, dec("2"), true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.Units)
	assert.True(t, out.Doses.Equal(dec("3")), "doses must be untouched")
}

func TestConsume_WholeUnits_Insufficient(t *testing.T) {
	p := Profile{ProductID: "p1", DosesPerUnit: 10, Divisible: true}
	s := Stock{Units: 1, Doses: dec("9")}

	_, err := p.Consume(s, dec("2"), true)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))
}

func TestConsume_Doses_OpensUnits(t *testing.T) {
	// dosesPerUnit=10, stock {units:2, doses:3}; consuming 5 doses draws the
	// 3 loose doses, opens one unit of 10, uses 2, leaves 8.
	p := Profile{ProductID: "p1", DosesPerUnit: 10, Divisible: true}
	s := Stock{Units: 2, Doses: dec("3")}

	out, err := p.Consume(s, dec("5"), false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Units)
	assert.True(t, out.Doses.Equal(dec("8")), "got %s", out.Doses)
}

func TestConsume_Doses_FromLooseOnly(t *testing.T) {
	p := Profile{ProductID: "p1", DosesPerUnit: 10, Divisible: true}
	s := Stock{Units: 2, Doses: dec("5")}

	out, err := p.Consume(s, dec("4"), false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Units)
	assert.True(t, out.Doses.Equal(dec("1")))
}

func TestConsume_Doses_NotDivisible(t *testing.T) {
	p := Profile{ProductID: "p1", DosesPerUnit: 10, Divisible: false}
	s := Stock{Units: 2, Doses: dec("0")}

	_, err := p.Consume(s, dec("1"), false)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeProductNotDivisible))
}

func TestConsume_Doses_ExactlyLast(t *testing.T) {
	p := Profile{ProductID: "p1", DosesPerUnit: 10, Divisible: true}
	s := Stock{Units: 1, Doses: dec("3")}

	// Exactly the last available dose succeeds.
	out, err := p.Consume(s, dec("13"), false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), out.Units)
	assert.True(t, out.Doses.IsZero())

	// One more than available fails, leaving stock untouched.
	out2, err := p.Consume(s, dec("14"), false)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))
	assert.Equal(t, s, out2)
}

func TestConsume_FractionalDoses(t *testing.T) {
	p := Profile{ProductID: "p1", DosesPerUnit: 4, Divisible: true}
	s := Stock{Units: 1, Doses: dec("0.5")}

	out, err := p.Consume(s, dec("1.5"), false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), out.Units)
	assert.True(t, out.Doses.Equal(dec("3")), "got %s", out.Doses)
}

func TestRestock_DoseCarry(t *testing.T) {
	p := Profile{ProductID: "p1", DosesPerUnit: 10, Divisible: true}
	s := Stock{Units: 1, Doses: dec("8")}

	out, err := p.Restock(s, dec("25"), false)
	require.NoError(t, err)
	assert.Equal(t, int64(4), out.Units)
	assert.True(t, out.Doses.Equal(dec("3")))
	assert.True(t, p.Valid(out))
}

func TestRestock_WholeUnits(t *testing.T) {
	p := Profile{ProductID: "p1", DosesPerUnit: 10, Divisible: false}
	s := Stock{Units: 0, Doses: dec("0")}

	out, err := p.Restock(s, dec("7"), true)
	require.NoError(t, err)
	assert.Equal(t, int64(7), out.Units)
}

func TestConsumeRestock_RoundTrip(t *testing.T) {
	p := Profile{ProductID: "p1", DosesPerUnit: 10, Divisible: true}
	start := Stock{Units: 2, Doses: dec("3")}

	consumed, err := p.Consume(start, dec("5"), false)
	require.NoError(t, err)

	restored, err := p.Restock(consumed, dec("5"), false)
	require.NoError(t, err)
	assert.True(t, p.TotalDoses(restored).Equal(p.TotalDoses(start)))
}

func TestDoseConservation(t *testing.T) {
	p := Profile{ProductID: "p1", DosesPerUnit: 7, Divisible: true}
	s := Stock{Units: 3, Doses: dec("4")}

	cases := []struct {
		qty   string
		whole bool
	}{
		{"1", true},
		{"2", false},
		{"6.5", false},
		{"7", false},
	}

	for _, tc := range cases {
		before := p.TotalDoses(s)
		out, err := p.Consume(s, dec(tc.qty), tc.whole)
		require.NoError(t, err, "qty=%s whole=%v", tc.qty, tc.whole)

		consumedDoses := dec(tc.qty)
		if tc.whole {
			consumedDoses = consumedDoses.Mul(decimal.NewFromInt(p.DosesPerUnit))
		}
		assert.True(t, p.TotalDoses(out).Equal(before.Sub(consumedDoses)),
			"qty=%s whole=%v", tc.qty, tc.whole)
		assert.True(t, p.Valid(out))
		s = out
	}
}

func TestConsume_RejectsNonPositive(t *testing.T) {
	p := Profile{ProductID: "p1", DosesPerUnit: 10, Divisible: true}
	s := Stock{Units: 1, Doses: dec("0")}

	_, err := p.Consume(s, dec("0"), false)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = p.Restock(s, dec("-1"), true)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}
