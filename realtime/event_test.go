package realtime_test

import (
	"testing"

	apperrors "github.com/abase/abase-manager/internal/errors"
	"github.com/abase/abase-manager/realtime"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	t.Run("event-stream form", func(t *testing.T) {
		ev, err := realtime.ParseEvent([]byte(`{"type":"PAGAMENTO_RECEBIDO","data":{"valor":150.5},"timestamp":"2024-01-01T00:00:00Z","subjectId":"42"}`))
		require.NoError(t, err)
		require.Equal(t, "PAGAMENTO_RECEBIDO", ev.Type)
		require.JSONEq(t, `{"valor":150.5}`, string(ev.Data))
		require.Equal(t, "2024-01-01T00:00:00Z", ev.Timestamp)
		require.Equal(t, "42", ev.SubjectID)
	})

	t.Run("socket form", func(t *testing.T) {
		ev, err := realtime.ParseEvent([]byte(`{"channel":"cadastros","event":"CADASTRO_CRIADO","data":[1,2]}`))
		require.NoError(t, err)
		require.Equal(t, "CADASTRO_CRIADO", ev.Type)
		require.Equal(t, "cadastros", ev.Channel)
		require.Equal(t, "[1,2]", string(ev.Data))
	})

	t.Run("user_id alias and the server hello", func(t *testing.T) {
		ev, err := realtime.ParseEvent([]byte(`{"type":"CONNECTED","timestamp":"now","user_id":7}`))
		require.NoError(t, err)
		require.Equal(t, realtime.EventConnected, ev.Type)
		require.Equal(t, "now", ev.Timestamp)
		require.Equal(t, "7", ev.SubjectID)
		require.Nil(t, ev.Data)
	})

	t.Run("subjectId wins over user_id", func(t *testing.T) {
		ev, err := realtime.ParseEvent([]byte(`{"type":"X","subjectId":"a","user_id":"b"}`))
		require.NoError(t, err)
		require.Equal(t, "a", ev.SubjectID)
	})

	malformed := map[string]string{
		"plain text":   `Conexão estabelecida`,
		"empty":        `   `,
		"array":        `[{"type":"X"}]`,
		"broken json":  `{"type":`,
		"missing type": `{"data":{"id":1},"timestamp":"2024-01-01T00:00:00Z"}`,
		"null":         `null`,
	}
	for name, frame := range malformed {
		t.Run(name+" is malformed", func(t *testing.T) {
			_, err := realtime.ParseEvent([]byte(frame))
			require.ErrorIs(t, err, apperrors.ErrMalformedEvent)
		})
	}
}
