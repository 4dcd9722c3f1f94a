package mailer

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	authcore "github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/actiontoken"
)

// Console prints mail to a writer instead of sending it. Intended for
// development, where the confirmation link in the output replaces a real
// inbox.
type Console struct {
	mu           sync.Mutex
	out          io.Writer
	frontendHost string
}

// NewConsole writes to out, defaulting to stdout.
func NewConsole(out io.Writer, frontendHost string) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out, frontendHost: frontendHost}
}

func (c *Console) SendActionEmail(_ context.Context, user authcore.UserRecord, token string, action actiontoken.Action) error {
	return c.print(renderAction(c.frontendHost, user, token, action))
}

func (c *Console) SendWelcomeEmail(_ context.Context, user authcore.UserRecord) error {
	return c.print(renderWelcome(user))
}

func (c *Console) print(msg message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.out, "--- mail to %s ---\nSubject: %s\n\n%s\n", msg.To, msg.Subject, msg.TextBody)
	return err
}
