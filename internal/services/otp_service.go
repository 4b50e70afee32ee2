package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"gudam-backend/internal/apperr"
	"gudam-backend/internal/utils"
)

const (
	otpLength      = 6
	otpMaxAttempts = 5

	// DefaultOTPTTL is how long a sent code stays valid.
	DefaultOTPTTL = 5 * time.Minute
)

// otpEntry holds a pending code. Only the hash of the code is kept.
type otpEntry struct {
	codeHash  string
	phone     string
	expiresAt time.Time
	attempts  int
}

// OTPStore is an in-memory, TTL-bound store of pending verification codes,
// keyed by user id. One pending code per user; sending a new code replaces
// the old one.
type OTPStore struct {
	mu      sync.Mutex
	entries map[string]*otpEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewOTPStore creates an OTP store with the given code lifetime.
func NewOTPStore(ttl time.Duration) *OTPStore {
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	return &OTPStore{
		entries: make(map[string]*otpEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *OTPStore) put(userID, codeHash, phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = &otpEntry{
		codeHash:  codeHash,
		phone:     phone,
		expiresAt: s.now().Add(s.ttl),
	}
}

func (s *OTPStore) get(userID string) (otpEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		return otpEntry{}, false
	}
	return *e, true
}

func (s *OTPStore) delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
}

// recordAttempt increments the failed-attempt counter and returns the new
// count. A missing entry counts as zero.
func (s *OTPStore) recordAttempt(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		return 0
	}
	e.attempts++
	return e.attempts
}

// Pending reports whether a user has a live, unexpired code.
func (s *OTPStore) Pending(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	return ok && s.now().Before(e.expiresAt)
}

// OTPService issues and verifies phone verification codes. The store is
// injected so tests and deployments can control code lifetime.
type OTPService struct {
	codes    *OTPStore
	notifier *NotificationService
}

// NewOTPService creates a new OTP service
func NewOTPService(codes *OTPStore, notifier *NotificationService) *OTPService {
	return &OTPService{codes: codes, notifier: notifier}
}

func hashOTP(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// Send generates a fresh code for the user, stores its hash and delivers the
// code over SMS. Returns whether the SMS was accepted by the gateway.
func (s *OTPService) Send(userID, phone string) bool {
	code := utils.GenerateOTP(otpLength)
	s.codes.put(userID, hashOTP(code), phone)

	message := fmt.Sprintf("গুদাম যাচাইকরণ কোড: %s। কোডটি কারো সাথে শেয়ার করবেন না।", code)
	return s.notifier.SendSMS(phone, message)
}

// Verify checks a submitted code against the pending entry. A successful
// verification consumes the code; it cannot be replayed.
func (s *OTPService) Verify(userID, phone, code string) error {
	entry, ok := s.codes.get(userID)
	if !ok {
		return apperr.BadRequest("কোনো OTP পাওয়া যায়নি। আবার পাঠান। (No OTP found. Please resend.)")
	}

	if s.codes.now().After(entry.expiresAt) {
		s.codes.delete(userID)
		return apperr.BadRequest("OTP এর মেয়াদ শেষ হয়ে গেছে। আবার পাঠান। (OTP expired. Please resend.)")
	}

	if entry.phone != phone {
		return apperr.BadRequest("ফোন নম্বর মেলেনি (Phone number mismatch)")
	}

	if entry.attempts >= otpMaxAttempts {
		s.codes.delete(userID)
		return apperr.New(429, "অনেকবার ভুল চেষ্টা হয়েছে। নতুন OTP নিন। (Too many attempts. Request a new OTP.)")
	}

	if hashOTP(code) != entry.codeHash {
		attempts := s.codes.recordAttempt(userID)
		remaining := otpMaxAttempts - attempts
		if remaining <= 0 {
			s.codes.delete(userID)
			return apperr.New(429, "অনেকবার ভুল চেষ্টা হয়েছে। নতুন OTP নিন। (Too many attempts. Request a new OTP.)")
		}
		return apperr.BadRequest(fmt.Sprintf("ভুল OTP কোড। আর %d বার চেষ্টা করতে পারবেন। (Invalid OTP code, %d attempts left)", remaining, remaining))
	}

	s.codes.delete(userID)
	return nil
}
