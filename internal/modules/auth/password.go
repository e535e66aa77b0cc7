package auth

import (
	"net/mail"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// burnCompare spends a bcrypt comparison so that unknown accounts take as
// long as wrong passwords.
func burnCompare(password string) {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash. A nil hash never
// matches.
func CheckPassword(hash *string, password string) bool {
	if hash == nil || *hash == "" {
		burnCompare(password)
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*hash), []byte(password)) == nil
}

// EmailPolicy decides which addresses may hold an account.
type EmailPolicy struct {
	domains []string
}

func NewEmailPolicy(domains []string) *EmailPolicy {
	normalized := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
		if d != "" {
			normalized = append(normalized, d)
		}
	}
	return &EmailPolicy{domains: normalized}
}

// Allowed accepts an address whose domain equals a listed domain or is a
// subdomain of one (cs.uw.edu for uw.edu).
func (p *EmailPolicy) Allowed(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return false
	}
	at := strings.LastIndexByte(addr.Address, '@')
	if at <= 0 {
		return false
	}
	host := strings.ToLower(addr.Address[at+1:])
	for _, d := range p.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
