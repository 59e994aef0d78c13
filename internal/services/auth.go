package services

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net"
	"strings"

	"github.com/pandeptwidyaop/homelab-remote/internal/config"
	"github.com/pandeptwidyaop/homelab-remote/internal/probe"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordNotSet     = errors.New("no password configured")
	ErrInvalidOTP         = errors.New("invalid otp code")
)

// AuthService decides whether a caller may trigger remote actions.
type AuthService struct {
	cfg      *config.Config
	serverIP string
	trusted  map[string]bool
}

// NewAuthService creates a new AuthService. serverIP is the address of this
// host, which counts as local.
func NewAuthService(cfg *config.Config, serverIP string) *AuthService {
	trusted := make(map[string]bool, len(cfg.Auth.TrustedIPs))
	for _, ip := range cfg.Auth.TrustedIPs {
		trusted[strings.TrimSpace(ip)] = true
	}
	return &AuthService{cfg: cfg, serverIP: serverIP, trusted: trusted}
}

// ServerIP returns the address remote callers are redirected to.
func (s *AuthService) ServerIP() string {
	return s.serverIP
}

// IsLocal reports whether ip may skip the password check.
func (s *AuthService) IsLocal(ip string) bool {
	if !s.cfg.Auth.IsLocalBypassEnabled() {
		return false
	}
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	if probe.IsLoopback(ip) {
		return true
	}
	if s.serverIP != "" && ip == s.serverIP {
		return true
	}
	return s.trusted[ip]
}

// TOTPEnabled reports whether remote callers must also send an OTP code.
func (s *AuthService) TOTPEnabled() bool {
	return s.cfg.Auth.TOTPSecret != ""
}

// HashPassword returns a bcrypt hash of password.
func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.Auth.BcryptCost)
	return string(bytes), err
}

// CheckPassword compares password against the configured hash, which may be
// bcrypt or a hex encoded SHA-256 digest.
func (s *AuthService) CheckPassword(password string) bool {
	hash := s.cfg.Auth.PasswordHash
	if hash == "" || password == "" {
		return false
	}

	if isBcryptHash(hash) {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}

	sum := sha256.Sum256([]byte(password))
	digest := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(digest), []byte(strings.ToLower(hash))) == 1
}

func isBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

// ValidateOTP checks a TOTP code. It always succeeds when TOTP is disabled.
func (s *AuthService) ValidateOTP(code string) bool {
	if !s.TOTPEnabled() {
		return true
	}
	return totp.Validate(code, s.cfg.Auth.TOTPSecret)
}

// Authorize checks the credentials a remote caller sent with a request.
func (s *AuthService) Authorize(password, otpCode string) error {
	if s.cfg.Auth.PasswordHash == "" {
		return ErrPasswordNotSet
	}
	if !s.CheckPassword(password) {
		return ErrInvalidCredentials
	}
	if !s.ValidateOTP(otpCode) {
		return ErrInvalidOTP
	}
	return nil
}
