// Package mailer provides authcore.Mailer implementations: an AWS SES
// mailer for production and a console mailer for development. Message
// rendering is shared; both mailers send the same templated action and
// welcome mail.
package mailer
