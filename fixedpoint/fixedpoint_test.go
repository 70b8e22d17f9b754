package fixedpoint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBigIntFromString is a helper for numbers larger than an int64.
func newBigIntFromString(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("failed to set string for big.Int")
	}
	return n
}

func TestMulDiv(t *testing.T) {
	maxWord := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	testCases := []struct {
		name        string
		a, b, den   *big.Int
		expected    *big.Int
		expectedErr error
	}{
		{
			name: "Exact Division",
			a:    big.NewInt(6), b: big.NewInt(10), den: big.NewInt(3),
			expected: big.NewInt(20),
		},
		{
			name: "Floor Rounding",
			a:    big.NewInt(7), b: big.NewInt(10), den: big.NewInt(3),
			expected: big.NewInt(23), // 70/3 = 23.33...
		},
		{
			name: "Intermediate Widening Past 256 Bits",
			a:    maxWord, b: maxWord, den: maxWord,
			expected: new(big.Int).Set(maxWord),
		},
		{
			name: "Result Overflow",
			a:    maxWord, b: big.NewInt(2), den: big.NewInt(1),
			expectedErr: ErrArithmeticOverflow,
		},
		{
			name: "Division By Zero",
			a:    big.NewInt(1), b: big.NewInt(1), den: big.NewInt(0),
			expectedErr: ErrDivisionByZero,
		},
		{
			name: "Nil Operand",
			a:    nil, b: big.NewInt(1), den: big.NewInt(1),
			expectedErr: ErrNegativeInput,
		},
		{
			name: "Negative Operand",
			a:    big.NewInt(-1), b: big.NewInt(1), den: big.NewInt(1),
			expectedErr: ErrNegativeInput,
		},
		{
			name: "Zero Numerator",
			a:    big.NewInt(0), b: big.NewInt(123), den: big.NewInt(7),
			expected: big.NewInt(0),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := MulDiv(tc.a, tc.b, tc.den)
			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Zero(t, tc.expected.Cmp(result), "expected %s, got %s", tc.expected, result)
		})
	}
}

func TestMulDivUp(t *testing.T) {
	t.Run("Rounds Up On Remainder", func(t *testing.T) {
		result, err := MulDivUp(big.NewInt(7), big.NewInt(10), big.NewInt(3))
		require.NoError(t, err)
		assert.Zero(t, big.NewInt(24).Cmp(result))
	})

	t.Run("Exact Division Does Not Round", func(t *testing.T) {
		result, err := MulDivUp(big.NewInt(6), big.NewInt(10), big.NewInt(3))
		require.NoError(t, err)
		assert.Zero(t, big.NewInt(20).Cmp(result))
	})

	t.Run("Division By Zero", func(t *testing.T) {
		_, err := MulDivUp(big.NewInt(1), big.NewInt(1), big.NewInt(0))
		assert.ErrorIs(t, err, ErrDivisionByZero)
	})
}

func TestSqrt(t *testing.T) {
	testCases := []struct {
		name     string
		input    *big.Int
		expected *big.Int
	}{
		{"Perfect Square", big.NewInt(400_000_000_000_000), big.NewInt(20_000_000)},
		{"Floor Of Non-Square", big.NewInt(2), big.NewInt(1)},
		{"Zero", big.NewInt(0), big.NewInt(0)},
		{"Large", newBigIntFromString("400000000000000000000000000000000000000"), newBigIntFromString("20000000000000000000")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := Sqrt(tc.input)
			require.NoError(t, err)
			assert.Zero(t, tc.expected.Cmp(result))
		})
	}

	t.Run("Negative Input", func(t *testing.T) {
		_, err := Sqrt(big.NewInt(-4))
		assert.ErrorIs(t, err, ErrNegativeInput)
	})
}

func TestEncodeQ112(t *testing.T) {
	t.Run("Whole Ratio", func(t *testing.T) {
		// 40_000_000 / 10_000_000 = 4, encoded as 4 << 112.
		encoded, err := EncodeQ112(big.NewInt(40_000_000), big.NewInt(10_000_000))
		require.NoError(t, err)
		expected := newBigIntFromString("20769187434139310514121985316880384")
		assert.Zero(t, expected.Cmp(encoded.ToBig()))
	})

	t.Run("Fractional Ratio", func(t *testing.T) {
		// 10_000_000 / 40_000_000 = 0.25, encoded as 2^112 / 4.
		encoded, err := EncodeQ112(big.NewInt(10_000_000), big.NewInt(40_000_000))
		require.NoError(t, err)
		expected := newBigIntFromString("1298074214633706907132624082305024")
		assert.Zero(t, expected.Cmp(encoded.ToBig()))
	})

	t.Run("Zero Denominator", func(t *testing.T) {
		_, err := EncodeQ112(big.NewInt(1), big.NewInt(0))
		assert.ErrorIs(t, err, ErrDivisionByZero)
	})
}

func BenchmarkMulDiv(b *testing.B) {
	x := newBigIntFromString("50000000000000000000")
	y := newBigIntFromString("2000000000000")
	den := newBigIntFromString("1000000000000000000000")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = MulDiv(x, y, den)
	}
}
