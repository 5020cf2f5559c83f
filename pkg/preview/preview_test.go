package preview

import (
	"testing"

	"github.com/pion/rtcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractNALUsRoundTrip(t *testing.T) {
	encode := func(nalus ...[]byte) []byte {
		var out []byte
		for _, n := range nalus {
			l := len(n)
			out = append(out, byte(l>>24), byte(l>>16), byte(l>>8), byte(l))
			out = append(out, n...)
		}
		return out
	}

	data := encode([]byte{0x67, 0x01, 0x02}, []byte{0x68, 0x03})
	nalus, err := extractNALUs(data)
	require.NoError(t, err)
	require.Len(t, nalus, 2)
	assert.Equal(t, []byte{0x67, 0x01, 0x02}, nalus[0])
	assert.Equal(t, []byte{0x68, 0x03}, nalus[1])
}

func TestExtractNALUsRejectsTruncatedLength(t *testing.T) {
	_, err := extractNALUs([]byte{0, 0, 0, 10, 1, 2})
	assert.Error(t, err)
}

func TestParseReceiverReportsFindsMatchingSSRC(t *testing.T) {
	rr := &rtcp.ReceiverReport{
		SSRC: 1,
		Reports: []rtcp.ReceptionReport{
			{SSRC: 42, FractionLost: 5, TotalLost: 100},
		},
	}
	raw, err := rr.Marshal()
	require.NoError(t, err)

	fraction, total, found, err := ParseReceiverReports(raw, 42)
	require.NoError(t, err)
	require.True(t, found)
	assert.EqualValues(t, 5, fraction)
	assert.EqualValues(t, 100, total)
}

func TestParseReceiverReportsMissingSSRC(t *testing.T) {
	rr := &rtcp.ReceiverReport{SSRC: 1}
	raw, err := rr.Marshal()
	require.NoError(t, err)

	_, _, found, err := ParseReceiverReports(raw, 99)
	require.NoError(t, err)
	assert.False(t, found)
}
