package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/internal/repository"
)

// ErrKeyMissing indicates the key set has no current signing key
var ErrKeyMissing = fmt.Errorf("no signing key available")

const rsaKeyBits = 2048

// JSONWebKey is one RFC 7517 key document entry
type JSONWebKey struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS is the RFC 7517 key set document
type JWKS struct {
	Keys []JSONWebKey `json:"keys"`
}

type keyEntry struct {
	kid       string
	private   *rsa.PrivateKey
	public    *rsa.PublicKey
	isSigning bool
	createdAt time.Time
}

// KeySet owns the RSA signing material. Exactly one key signs at a time;
// retired keys remain available for verification until the retention
// window elapses.
type KeySet struct {
	repo      repository.SigningKeyRepository
	retention time.Duration
	logger    *zap.Logger

	mu         sync.RWMutex
	signingKid string
	keys       map[string]*keyEntry
}

// NewKeySet creates a key set backed by the given repository. Retention
// must be at least the maximum access-token lifetime so rotation never
// strands valid tokens.
func NewKeySet(repo repository.SigningKeyRepository, retention time.Duration, logger *zap.Logger) *KeySet {
	return &KeySet{
		repo:      repo,
		retention: retention,
		logger:    logger,
		keys:      make(map[string]*keyEntry),
	}
}

// Bootstrap loads persisted keys and generates an initial signing key when
// the store is empty.
func (ks *KeySet) Bootstrap(ctx context.Context) error {
	stored, err := ks.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load signing keys: %w", err)
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	for _, sk := range stored {
		entry, err := parseKeyEntry(sk)
		if err != nil {
			ks.logger.Warn("skipping unparseable signing key", zap.String("kid", sk.Kid), zap.Error(err))
			continue
		}
		ks.keys[entry.kid] = entry
		if entry.isSigning {
			ks.signingKid = entry.kid
		}
	}

	if ks.signingKid == "" {
		entry, err := ks.generateLocked(ctx)
		if err != nil {
			return err
		}
		ks.logger.Info("generated initial signing key", zap.String("kid", entry.kid))
	}

	return nil
}

// CurrentSigningKey returns the kid and private key used to sign new tokens
func (ks *KeySet) CurrentSigningKey() (string, *rsa.PrivateKey, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	entry, ok := ks.keys[ks.signingKid]
	if !ok {
		return "", nil, ErrKeyMissing
	}
	return entry.kid, entry.private, nil
}

// VerificationKey returns the public key for a kid
func (ks *KeySet) VerificationKey(kid string) (*rsa.PublicKey, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	entry, ok := ks.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown key id %s", kid)
	}
	return entry.public, nil
}

// Rotate generates a new signing key, retires the previous one to
// verify-only, and prunes retired keys past the retention window.
func (ks *KeySet) Rotate(ctx context.Context) (string, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	previous := ks.signingKid

	entry, err := ks.generateLocked(ctx)
	if err != nil {
		return "", err
	}

	if previous != "" {
		if err := ks.repo.MarkVerifyOnly(ctx, previous); err != nil {
			return "", fmt.Errorf("failed to retire key %s: %w", previous, err)
		}
		if old, ok := ks.keys[previous]; ok {
			old.isSigning = false
		}
	}

	cutoff := time.Now().Add(-ks.retention)
	for kid, old := range ks.keys {
		if old.isSigning || !old.createdAt.Before(cutoff) {
			continue
		}
		if err := ks.repo.Delete(ctx, kid); err != nil {
			ks.logger.Warn("failed to prune retired key", zap.String("kid", kid), zap.Error(err))
			continue
		}
		delete(ks.keys, kid)
	}

	ks.logger.Info("rotated signing key",
		zap.String("kid", entry.kid),
		zap.String("previous_kid", previous),
	)

	return entry.kid, nil
}

// PublicJWKS renders the RFC 7517 document for all held keys, newest
// first, along with a strong ETag over the kid set.
func (ks *KeySet) PublicJWKS() (*JWKS, string) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	entries := make([]*keyEntry, 0, len(ks.keys))
	for _, entry := range ks.keys {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].createdAt.After(entries[j].createdAt)
	})

	doc := &JWKS{Keys: make([]JSONWebKey, 0, len(entries))}
	hasher := sha256.New()
	for _, entry := range entries {
		doc.Keys = append(doc.Keys, JSONWebKey{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: entry.kid,
			N:   base64.RawURLEncoding.EncodeToString(entry.public.N.Bytes()),
			E:   encodePublicExponent(entry.public.E),
		})
		hasher.Write([]byte(entry.kid))
	}

	etag := fmt.Sprintf("%q", hex.EncodeToString(hasher.Sum(nil))[:16])
	return doc, etag
}

// generateLocked creates, persists, and installs a new signing key.
// Caller holds ks.mu.
func (ks *KeySet) generateLocked(ctx context.Context) (*keyEntry, error) {
	private, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	kidBytes := make([]byte, 16)
	if _, err := rand.Read(kidBytes); err != nil {
		return nil, fmt.Errorf("failed to generate key id: %w", err)
	}

	entry := &keyEntry{
		kid:       hex.EncodeToString(kidBytes),
		private:   private,
		public:    &private.PublicKey,
		isSigning: true,
		createdAt: time.Now(),
	}

	publicDER, err := x509.MarshalPKIXPublicKey(entry.public)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	record := &domain.SigningKey{
		Kid: entry.kid,
		PrivatePEM: string(pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(private),
		})),
		PublicPEM: string(pem.EncodeToMemory(&pem.Block{
			Type:  "PUBLIC KEY",
			Bytes: publicDER,
		})),
		IsSigning: true,
		CreatedAt: entry.createdAt,
	}

	if err := ks.repo.Insert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist signing key: %w", err)
	}

	ks.keys[entry.kid] = entry
	ks.signingKid = entry.kid

	return entry, nil
}

func parseKeyEntry(sk *domain.SigningKey) (*keyEntry, error) {
	block, _ := pem.Decode([]byte(sk.PrivatePEM))
	if block == nil {
		return nil, fmt.Errorf("no PEM block in private key")
	}

	private, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &keyEntry{
		kid:       sk.Kid,
		private:   private,
		public:    &private.PublicKey,
		isSigning: sk.IsSigning,
		createdAt: sk.CreatedAt,
	}, nil
}

func encodePublicExponent(e int) string {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(e))
	i := 0
	for i < 7 && buf[i] == 0 {
		i++
	}
	return base64.RawURLEncoding.EncodeToString(buf[i:])
}
