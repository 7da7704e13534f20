package agentcard

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/theapemachine/a2a-go/pkg/a2a"
)

// DefaultCacheTTL is used when Server.TTL is left zero.
const DefaultCacheTTL = 5 * time.Minute

const defaultCacheKey = "default"

type cacheEntry struct {
	card     *a2a.AgentCard
	cachedAt time.Time
}

/*
Server builds an AgentCard from a Registry and serves it from a per-caller
TTL cache (default key "default" when no caller id is supplied). Signing is
off by default; call EnableSigning to populate AgentCard.Signatures with a
detached JWS and to enable the JWS discovery endpoint (CardJWS), which
serves the full compact serialization.
*/
type Server struct {
	// Base supplies the card's fields. At build time Skills is derived from
	// Registry, ProtocolVersion is overwritten, Capabilities.Streaming is set
	// to true when any registered capability streams, and Signatures is set
	// when signing is enabled.
	Base     a2a.AgentCard
	Registry *Registry
	TTL      time.Duration

	signer jose.Signer

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewServer constructs a Server. ttl <= 0 falls back to DefaultCacheTTL.
func NewServer(base a2a.AgentCard, registry *Registry, ttl time.Duration) *Server {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Server{Base: base, Registry: registry, TTL: ttl, cache: make(map[string]cacheEntry)}
}

// EnableSigning turns on JWS signing of served cards using the given ECDSA
// key and algorithm (e.g. jose.ES256).
func (s *Server) EnableSigning(key *ecdsa.PrivateKey, alg jose.SignatureAlgorithm) error {
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: alg, Key: key}, nil)
	if err != nil {
		return fmt.Errorf("agentcard: create signer: %w", err)
	}
	s.signer = signer
	return nil
}

// Card returns the (possibly cached) AgentCard for caller. An empty caller
// is treated as the default cache key.
func (s *Server) Card(caller string) *a2a.AgentCard {
	caller = normalizeCaller(caller)

	if entry, ok := s.cached(caller); ok {
		return entry
	}

	card := s.build()

	s.mu.Lock()
	s.cache[caller] = cacheEntry{card: card, cachedAt: time.Now()}
	s.mu.Unlock()

	return card
}

// ExtendedCard returns caller's card with mutate applied over a private
// copy, used by agent/getAuthenticatedExtendedCard to tailor a card to the
// caller's verified claims without disturbing the shared cached copy.
func (s *Server) ExtendedCard(caller string, mutate func(*a2a.AgentCard)) *a2a.AgentCard {
	card := *s.Card(caller)
	card.Skills = append([]a2a.AgentSkill(nil), card.Skills...)
	if mutate != nil {
		mutate(&card)
	}
	return &card
}

// CardJWS returns the full JWS compact serialization (header.payload.signature)
// of caller's card. Returns an error if signing was never enabled.
func (s *Server) CardJWS(caller string) (string, error) {
	if s.signer == nil {
		return "", fmt.Errorf("agentcard: signing not enabled")
	}
	card := *s.Card(caller)
	card.Signatures = nil

	payload, err := json.Marshal(&card)
	if err != nil {
		return "", fmt.Errorf("agentcard: marshal card: %w", err)
	}
	obj, err := s.signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("agentcard: sign card: %w", err)
	}
	return obj.CompactSerialize()
}

// Invalidate drops caller's cached card so the next Card call rebuilds it.
// Used to honor a request's Cache-Control: max-age directive that asks for
// something fresher than what's cached.
func (s *Server) Invalidate(caller string) {
	s.mu.Lock()
	delete(s.cache, normalizeCaller(caller))
	s.mu.Unlock()
}

func (s *Server) cached(caller string) (*a2a.AgentCard, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cache[caller]
	if !ok || time.Since(entry.cachedAt) >= s.TTL {
		return nil, false
	}
	return entry.card, true
}

func (s *Server) build() *a2a.AgentCard {
	card := s.Base
	caps := s.Registry.Capabilities()
	skills := make([]a2a.AgentSkill, len(caps))

	for i, c := range caps {
		skill := a2a.AgentSkill{
			ID:          c.Name,
			Name:        c.Name,
			Tags:        c.Tags,
			Examples:    c.Examples,
			InputModes:  deriveModes(c.InputSchema),
			OutputModes: deriveModes(c.OutputSchema),
			Security:    c.SecurityRequirements,
		}
		if c.Description != "" {
			desc := c.Description
			skill.Description = &desc
		}
		skills[i] = skill

		if c.Streaming {
			card.Capabilities.Streaming = true
		}
	}
	card.Skills = skills
	card.ProtocolVersion = a2a.ProtocolVersion

	if s.signer != nil {
		if sig, err := s.detachedSignature(&card); err == nil {
			card.Signatures = []a2a.AgentCardSignature{sig}
		}
	}
	return &card
}

// detachedSignature signs card and strips the payload segment out of the
// compact serialization: a verifier reconstructs the payload from the card
// document itself rather than carrying it twice.
func (s *Server) detachedSignature(card *a2a.AgentCard) (a2a.AgentCardSignature, error) {
	unsigned := *card
	unsigned.Signatures = nil

	payload, err := json.Marshal(&unsigned)
	if err != nil {
		return a2a.AgentCardSignature{}, err
	}
	obj, err := s.signer.Sign(payload)
	if err != nil {
		return a2a.AgentCardSignature{}, err
	}
	compact, err := obj.CompactSerialize()
	if err != nil {
		return a2a.AgentCardSignature{}, err
	}
	parts := strings.SplitN(compact, ".", 3)
	if len(parts) != 3 {
		return a2a.AgentCardSignature{}, fmt.Errorf("agentcard: unexpected compact serialization")
	}
	return a2a.AgentCardSignature{Protected: parts[0], Signature: parts[2]}, nil
}

func normalizeCaller(caller string) string {
	if caller == "" {
		return defaultCacheKey
	}
	return caller
}
