package wire

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// PasswordHashFunc encodes password with the engine's challenge for the
// login request. It returns false if no password is to be sent.
type PasswordHashFunc func(password, challenge string) (string, bool)

// NoPasswordHash is the default hash function; it never yields a hash.
func NoPasswordHash(string, string) (string, bool) {
	return "", false
}

// InternalPasswordHash is the recoverable encoding used by engines that
// validate logins with the host's PAM module. It is only safe on trusted
// networks.
//
// Characters are combined pairwise by code point, clamped to 255.
func InternalPasswordHash(password, challenge string) (string, bool) {
	p, c := []rune(password), []rune(challenge)
	var sb strings.Builder
	sb.WriteString("1")
	for i := range min(len(p), len(c)) {
		fmt.Fprintf(&sb, "%02x", min(p[i], 255)^min(c[i], 255))
	}
	return sb.String(), true
}

// PasswordRequired reports whether the engine requires passwords. The
// answer is cached for the life of the Transport.
//
// A site password hash set WithPasswordHash requires passwords if it
// yields a hash. Otherwise the engine's login scheme is queried: a
// validation scheme prefixed "internal:" selects InternalPasswordHash.
// Failed queries are taken to mean no password is required.
func (t *Transport) PasswordRequired(ctx context.Context) bool {
	if t.passwordRequired != nil {
		return *t.passwordRequired
	}
	required := false
	if t.passwordHash != nil {
		_, required = t.passwordHash("01", "01")
	}
	if !required {
		resp, err := t.Transaction(ctx, Request{Verb: "monitor?q=loginscheme", Context: "chklogins"})
		if err != nil {
			t.debug("login scheme query failed", "error", err)
		} else if validation, _ := resp.Map()["validation"].(string); strings.HasPrefix(validation, "internal:") {
			t.passwordHash = InternalPasswordHash
			required = true
		}
	}
	if required && t.passwordHash == nil {
		t.passwordHash = NoPasswordHash
	}
	t.passwordRequired = &required
	return required
}

// Login registers user with the engine and returns the reply, which holds
// the session id under "tsid". If the engine requires passwords, a
// challenge token is requested first and sent back combined with the hash
// of password.
func (t *Transport) Login(ctx context.Context, user, password string, headers ...Header) (map[string]any, error) {
	verb := "monitor?q=login&user=" + url.QueryEscape(user)
	if t.PasswordRequired(ctx) {
		if password == "" {
			return nil, fmt.Errorf("%w: password required, but not provided", ErrPasswordRequired)
		}
		resp, err := t.Transaction(ctx, Request{Verb: "monitor?q=gentoken", Context: "gentoken", Headers: headers})
		challenge := ""
		if err == nil {
			challenge, _ = resp.Map()["challenge"].(string)
		}
		if err != nil || challenge == "" {
			return nil, fmt.Errorf("%w: Failed to generate challenge token. code=%d - %s", ErrChallenge, errorCode(err), errorText(err, resp))
		}
		hash, _ := t.passwordHash(password, challenge)
		verb += "&c=" + url.QueryEscape(hex.EncodeToString([]byte(challenge+"|"+hash)))
	}
	resp, err := t.Transaction(ctx, Request{Verb: verb, Context: "register", Headers: headers})
	if err != nil {
		return nil, fmt.Errorf("%w: Tractor login failed. code=%d - %s: %w", ErrLogin, errorCode(err), errorText(err, nil), err)
	}
	data := resp.Map()
	if _, ok := data["tsid"].(string); !ok {
		return nil, fmt.Errorf("%w: Tractor login as '%s' failed. code=0 - %s", ErrLogin, user, resp.Body)
	}
	return data, nil
}

func errorCode(err error) int {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return 0
}

func errorText(err error, resp *Response) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return resp.Body
	}
	return ""
}
