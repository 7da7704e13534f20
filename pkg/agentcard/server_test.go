package agentcard

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theapemachine/a2a-go/pkg/a2a"
)

func testRegistry() *Registry {
	r := NewRegistry()
	r.Register(Capability{
		Name:        "echo",
		Description: "echoes text back",
		Tags:        []string{"demo"},
	})
	r.Register(Capability{
		Name:       "upload",
		Streaming:  true,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file": map[string]any{"type": "string", "format": "binary"},
			},
		},
		OutputSchema: map[string]any{"type": "object"},
	})
	return r
}

func TestCardDerivesSkillsFromRegistry(t *testing.T) {
	srv := NewServer(a2a.AgentCard{Name: "Test", Version: "1.0.0"}, testRegistry(), time.Minute)
	card := srv.Card("")

	require.Len(t, card.Skills, 2)
	assert.Equal(t, "echo", card.Skills[0].ID)
	assert.Equal(t, []string{"text"}, card.Skills[0].InputModes)

	assert.Contains(t, card.Skills[1].InputModes, "file")
	assert.Contains(t, card.Skills[1].InputModes, "data")
	assert.Contains(t, card.Skills[1].OutputModes, "data")
	assert.True(t, card.Capabilities.Streaming, "a streaming skill should flip card-level streaming on")
}

func TestCardIsCachedWithinTTL(t *testing.T) {
	srv := NewServer(a2a.AgentCard{Name: "Test"}, NewRegistry(), time.Minute)
	first := srv.Card("caller-a")
	second := srv.Card("caller-a")
	assert.Same(t, first, second, "within TTL the same cached pointer should be returned")
}

func TestCardRebuildsAfterTTLExpires(t *testing.T) {
	srv := NewServer(a2a.AgentCard{Name: "Test"}, NewRegistry(), time.Millisecond)
	first := srv.Card("caller-a")
	time.Sleep(5 * time.Millisecond)
	second := srv.Card("caller-a")
	assert.NotSame(t, first, second)
}

func TestCardCachePerCaller(t *testing.T) {
	srv := NewServer(a2a.AgentCard{Name: "Test"}, NewRegistry(), time.Minute)
	srv.Registry.Register(Capability{Name: "s1"})
	a := srv.Card("caller-a")
	srv.Registry.Register(Capability{Name: "s2"})
	b := srv.Card("caller-b")

	assert.Len(t, a.Skills, 1, "caller-a's cached card should not see skills registered after it was built")
	assert.Len(t, b.Skills, 2)
}

func TestExtendedCardMutationDoesNotLeakIntoSharedCache(t *testing.T) {
	srv := NewServer(a2a.AgentCard{Name: "Test"}, testRegistry(), time.Minute)
	base := srv.Card("default")

	extended := srv.ExtendedCard("default", func(c *a2a.AgentCard) {
		desc := "claims-derived description"
		c.Description = &desc
	})

	assert.Nil(t, base.Description)
	require.NotNil(t, extended.Description)
	assert.Equal(t, "claims-derived description", *extended.Description)
}

func TestEnableSigningPopulatesDetachedSignature(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	srv := NewServer(a2a.AgentCard{Name: "Test"}, testRegistry(), time.Minute)
	require.NoError(t, srv.EnableSigning(key, jose.ES256))

	card := srv.Card("")
	require.Len(t, card.Signatures, 1)
	assert.NotEmpty(t, card.Signatures[0].Protected)
	assert.NotEmpty(t, card.Signatures[0].Signature)
}

func TestCardJWSRequiresSigning(t *testing.T) {
	srv := NewServer(a2a.AgentCard{Name: "Test"}, NewRegistry(), time.Minute)
	_, err := srv.CardJWS("")
	assert.Error(t, err)
}

func TestCardJWSReturnsCompactSerialization(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	srv := NewServer(a2a.AgentCard{Name: "Test"}, testRegistry(), time.Minute)
	require.NoError(t, srv.EnableSigning(key, jose.ES256))

	compact, err := srv.CardJWS("")
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(compact, ".")))
}

func TestHandleCardServesJSON(t *testing.T) {
	srv := NewServer(a2a.AgentCard{Name: "Test"}, testRegistry(), time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/agent-card", nil)
	rec := httptest.NewRecorder()

	srv.HandleCard(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Test"`)
}

func TestHandleCardJWSWithoutSigningReturns501(t *testing.T) {
	srv := NewServer(a2a.AgentCard{Name: "Test"}, NewRegistry(), time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/agent-card.jws", nil)
	rec := httptest.NewRecorder()

	srv.HandleCardJWS(rec, req)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHandleCardHonorsMaxAgeOverride(t *testing.T) {
	srv := NewServer(a2a.AgentCard{Name: "Test"}, NewRegistry(), time.Hour)

	req1 := httptest.NewRequest(http.MethodGet, "/agent-card", nil)
	rec1 := httptest.NewRecorder()
	srv.HandleCard(rec1, req1)

	time.Sleep(5 * time.Millisecond)
	srv.Registry.Register(Capability{Name: "late"})

	req2 := httptest.NewRequest(http.MethodGet, "/agent-card", nil)
	req2.Header.Set("Cache-Control", "max-age=0")
	rec2 := httptest.NewRecorder()
	srv.HandleCard(rec2, req2)

	assert.NotEqual(t, rec1.Body.String(), rec2.Body.String(), "max-age=0 should force a rebuild that picks up the new skill")
}

func TestHandleCapabilitiesListsRawRegistry(t *testing.T) {
	srv := NewServer(a2a.AgentCard{Name: "Test"}, testRegistry(), time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/capabilities", nil)
	rec := httptest.NewRecorder()

	srv.HandleCapabilities(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "echo")
	assert.Contains(t, rec.Body.String(), "upload")
}
