package protocol

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyOutput = `{
  "x" : 3
}
% time elapsed: 0.05 s
----------
%%%mzn-stat: nodes=12
%%%mzn-stat: solveTime=0.001
%%%mzn-stat-end
{
  "x" : 1
}
----------
==========
% time elapsed: 0.10 s
`

func TestTextDecoder(t *testing.T) {
	evs := drain(t, NewTextDecoder(strings.NewReader(legacyOutput), 0, Minimize))
	require.Len(t, evs, 6)

	first := evs[0].(SolutionFound)
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, json.Number("3"), first.Fields["x"])
	assert.True(t, first.HasTime)
	assert.Equal(t, 50*time.Millisecond, first.Time)

	assert.Equal(t, StatisticRecord{Key: "nodes", Value: "12"}, evs[1])
	assert.Equal(t, StatisticRecord{Key: "solveTime", Value: "0.001"}, evs[2])
	assert.Equal(t, json.Number("1"), evs[3].(SolutionFound).Fields["x"])
	assert.Equal(t, StatusChanged{Token: TokenOptimal}, evs[4])
	assert.Equal(t, StatisticRecord{Key: "time", Value: 100 * time.Millisecond}, evs[5])
}

func TestTextDecoder_CompleteMeansAllSolutionsForSatisfy(t *testing.T) {
	evs := drain(t, NewTextDecoder(strings.NewReader("{}\n----------\n==========\n"), 0, Satisfy))
	require.Len(t, evs, 2)
	assert.Equal(t, StatusChanged{Token: TokenAllSolutions}, evs[1])
}

func TestTextDecoder_StatusMarkers(t *testing.T) {
	testCases := map[string]Token{
		"=====UNSATISFIABLE=====":    TokenUnsatisfiable,
		"=====UNKNOWN=====":          TokenUnknown,
		"=====ERROR=====":            TokenError,
		"=====UNBOUNDED=====":        TokenUnbounded,
		"=====UNSATorUNBOUNDED=====": TokenUnsatOrUnbounded,
	}
	for marker, expected := range testCases {
		t.Run(marker, func(t *testing.T) {
			evs := drain(t, NewTextDecoder(strings.NewReader(marker+"\r\n"), 0, Satisfy))
			require.Len(t, evs, 1)
			assert.Equal(t, StatusChanged{Token: expected}, evs[0])
		})
	}
}

func TestTextDecoder_LineEndingIndependent(t *testing.T) {
	lf := drain(t, NewTextDecoder(strings.NewReader(legacyOutput), 16, Minimize))
	crlf := drain(t, NewTextDecoder(strings.NewReader(strings.ReplaceAll(legacyOutput, "\n", "\r\n")), 16, Minimize))
	assert.Equal(t, lf, crlf)
}

func TestTextDecoder_TruncatedBlock(t *testing.T) {
	evs := drain(t, NewTextDecoder(strings.NewReader("{\n  \"x\" : "), 0, Satisfy))
	require.Len(t, evs, 1)
	assert.IsType(t, Warning{}, evs[0])
}

func TestTextDecoder_NonJSONBlockKeepsRawText(t *testing.T) {
	evs := drain(t, NewTextDecoder(strings.NewReader("x = 3;\n----------\n"), 0, Satisfy))
	require.Len(t, evs, 1)
	sol := evs[0].(SolutionFound)
	assert.Nil(t, sol.Fields)
	assert.Equal(t, "x = 3;", sol.Sections["raw"])
}
