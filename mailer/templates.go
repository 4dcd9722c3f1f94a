package mailer

import (
	"fmt"
	"strings"

	authcore "github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/actiontoken"
)

// message is a rendered mail, ready for any transport.
type message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// actionURL builds the confirmation link the recipient clicks. The token
// rides in the path, where the frontend router picks it up.
func actionURL(frontendHost string, action actiontoken.Action, token string) string {
	return strings.TrimRight(frontendHost, "/") + "/auth/" + action.Describe().PathSegment + "/" + token
}

func renderAction(frontendHost string, user authcore.UserRecord, token string, action actiontoken.Action) message {
	desc := action.Describe()
	link := actionURL(frontendHost, action, token)

	text := fmt.Sprintf(
		"Hello %s,\n\nTo continue, open the link below. It is valid for a limited time and stops working after your account changes.\n\n%s\n\nIf you did not request this, ignore this message.\n",
		user.Username, link,
	)
	html := fmt.Sprintf(
		`<p>Hello %s,</p><p>To continue, click the link below. It is valid for a limited time and stops working after your account changes.</p><p><a href="%s">%s</a></p><p>If you did not request this, ignore this message.</p>`,
		user.Username, link, desc.Subject,
	)

	return message{
		To:       user.Email,
		Subject:  desc.Subject,
		TextBody: text,
		HTMLBody: html,
	}
}

func renderWelcome(user authcore.UserRecord) message {
	return message{
		To:      user.Email,
		Subject: "Welcome!",
		TextBody: fmt.Sprintf(
			"Hello %s,\n\nYour account is confirmed and ready to use. Welcome aboard!\n",
			user.Username,
		),
		HTMLBody: fmt.Sprintf(
			"<p>Hello %s,</p><p>Your account is confirmed and ready to use. Welcome aboard!</p>",
			user.Username,
		),
	}
}
