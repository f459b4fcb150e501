package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON_Sum(t *testing.T) {
	expr, err := ParseJSON([]byte(`{
		"sum": {
			"augend": {"money": {"amount": 5, "currency": "USD"}},
			"addend": {"money": {"amount": 10, "currency": "CHF"}}
		}
	}`))
	require.NoError(t, err)
	assert.Equal(t, Sum{Augend: Dollar(5), Addend: Franc(10)}, expr)
}

func TestParseJSON_TimesIsAppliedEagerly(t *testing.T) {
	expr, err := ParseJSON([]byte(`{
		"times": {
			"multiplier": 3,
			"expression": {"sum": {
				"augend": {"money": {"amount": 1, "currency": "USD"}},
				"addend": {"money": {"amount": 2, "currency": "CHF"}}
			}}
		}
	}`))
	require.NoError(t, err)
	assert.Equal(t, Sum{Augend: Dollar(3), Addend: Franc(6)}, expr)
}

func TestParseJSON_TimesOverflow(t *testing.T) {
	_, err := ParseJSON([]byte(`{
		"times": {
			"multiplier": 2,
			"expression": {"money": {"amount": 9223372036854775807, "currency": "USD"}}
		}
	}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmountOverflow)
	assert.NotErrorIs(t, err, ErrInvalidExpression)
	assert.Contains(t, err.Error(), "$.times")
}

func TestParseJSON_Errors(t *testing.T) {
	cases := map[string]string{
		"not json":        `{`,
		"empty node":      `{}`,
		"two variants":    `{"money": {"amount": 1, "currency": "USD"}, "sum": {}}`,
		"missing addend":  `{"sum": {"augend": {"money": {"amount": 1, "currency": "USD"}}}}`,
		"blank currency":  `{"money": {"amount": 1, "currency": ""}}`,
		"missing operand": `{"times": {"multiplier": 2}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJSON([]byte(body))
			assert.ErrorIs(t, err, ErrInvalidExpression)
		})
	}
}

func TestParseJSON_ErrorNamesPath(t *testing.T) {
	_, err := ParseJSON([]byte(`{"sum": {"augend": {"money": {"amount": 1, "currency": "USD"}}}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "$.sum.addend")
}

func TestEncode_RoundTripsThroughDecode(t *testing.T) {
	expr := Dollar(5).Plus(Franc(10).Plus(Dollar(1)))

	data, err := json.Marshal(Encode(expr))
	require.NoError(t, err)

	back, err := ParseJSON(data)
	require.NoError(t, err)
	assert.Equal(t, expr, back)
}

func TestMoney_JSON(t *testing.T) {
	data, err := json.Marshal(Dollar(7))
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount": 7, "currency": "USD"}`, string(data))

	var m Money
	require.NoError(t, json.Unmarshal([]byte(`{"amount": 3, "currency": "CHF"}`), &m))
	assert.Equal(t, Franc(3), m)

	assert.ErrorIs(t, json.Unmarshal([]byte(`{"amount": 3}`), &m), ErrEmptyCurrency)
}

func TestParseJSON_NormalizesCurrency(t *testing.T) {
	expr, err := ParseJSON([]byte(`{"money": {"amount": 2, "currency": " chf "}}`))
	require.NoError(t, err)
	assert.Equal(t, Franc(2), expr)
}
