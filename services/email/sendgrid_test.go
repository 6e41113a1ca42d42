package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pgmanager/core"
)

func TestSendgridService_prepare(t *testing.T) {
	svc := NewSendgridService(core.NewTestConfig(), nil)
	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Name: "Asha", Address: "asha@pg.com"}},
		Bcc:         []mail.Address{{Address: "admin@pg.com"}},
		Subject:     "Room assigned",
		TextContent: "You moved in.",
	})

	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "[PG Manager] Room assigned", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "asha@pg.com", p.To[0].Address)
	require.Len(t, p.BCC, 1)
	assert.Equal(t, "noreply@localhost", m.From.Address)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
}
