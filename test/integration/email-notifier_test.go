//go:build integration

package integration

import (
	"strings"
	"testing"
	"time"

	"github.com/NordCoder/crewcruise/internal/domain/mail"
	kafkax "github.com/NordCoder/crewcruise/internal/repository/kafka"
)

func TestEmailNotifier_HappyPath(t *testing.T) {
	cfg := LoadCfg()
	MailhogPurge(t, cfg.MailhogAPI)
	EnsureTopic(t, cfg.KafkaBootstrap, cfg.MailTopic)

	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	id := "it-" + RandSuffix()
	to := "en-" + RandSuffix() + "@example.com"
	PublishJSON(t, cfg.KafkaBootstrap, cfg.MailTopic, []byte(id), kafkax.MailRequested{
		Message: mail.Message{
			ID:      id,
			To:      []string{to},
			Subject: "Crew briefing",
			Text:    "Boarding at 09:00",
			HTML:    "<p>Boarding at <b>09:00</b></p>",
		},
		RequestedAt: time.Now().UTC(),
	})

	got := WaitMail(t, cfg.MailhogAPI, to, 25*time.Second)
	if !strings.Contains(got.Subject(), "Crew briefing") {
		t.Fatalf("bad subject: %q", got.Subject())
	}
	if !strings.Contains(got.Content.Body, "Boarding at 09:00") {
		t.Fatalf("bad body: %q", got.Content.Body)
	}

	deadline := time.Now().Add(5 * time.Second)
	for CountMailLog(t, db, id) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("mail_log row for %s not stored", id)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func TestEmailNotifier_NoRecipients_Ignored(t *testing.T) {
	cfg := LoadCfg()
	MailhogPurge(t, cfg.MailhogAPI)
	EnsureTopic(t, cfg.KafkaBootstrap, cfg.MailTopic)

	PublishJSON(t, cfg.KafkaBootstrap, cfg.MailTopic, []byte("empty"), kafkax.MailRequested{
		Message:     mail.Message{ID: "it-empty-" + RandSuffix(), Subject: "nobody"},
		RequestedAt: time.Now().UTC(),
	})
	ExpectNoMailhog(t, cfg.MailhogAPI, 6*time.Second)
}
