package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeAlert(t *testing.T) {
	sent := time.Date(2021, 3, 9, 12, 30, 0, 0, time.UTC)
	alert := Alert{
		Subject: "ColoradoCovidData Error - Cases",
		Message: "fetch case data: status 503",
		SentAt:  sent,
	}

	msg, err := serializeAlert(alert)
	require.NoError(t, err)

	assert.Equal(t, []byte("ColoradoCovidData Error - Cases"), msg.Key)
	assert.JSONEq(t,
		`{"subject":"ColoradoCovidData Error - Cases","message":"fetch case data: status 503","sent_at":"2021-03-09T12:30:00Z"}`,
		string(msg.Value))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "sent_at", msg.Headers[0].Key)
	assert.Equal(t, []byte("2021-03-09T12:30:00Z"), msg.Headers[0].Value)
}
