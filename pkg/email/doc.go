// Package email provides transactional email delivery behind the
// EmailSender interface. The Postmark client is used in production; the
// dev sender writes messages to disk for local inspection. The only
// message this service sends is the password-setup verification code.
package email
