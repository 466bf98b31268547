// Package gateway is the HTTP surface of the paywall: slug requests, session
// issuance and the websocket clients wait on for payment confirmation.
package gateway

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tangleworks/slugpay/cms"
	"github.com/tangleworks/slugpay/config"
	"github.com/tangleworks/slugpay/notify"
	"github.com/tangleworks/slugpay/paywall"
)

// EventAwaitPayment is the client-to-server event that registers a waiter.
const EventAwaitPayment = "await_payment"

// CMS is the slice of the CMS client the gateway needs.
type CMS interface {
	Exists(ctx context.Context, slug string) (bool, error)
	Fetch(ctx context.Context, slug string) (*cms.Article, error)
}

// Server orchestrates content requests: existence checks against the CMS,
// session and token issuance, entitlement checks and content delivery. It
// only reads the entitlement store and only inserts waiters into the session
// registry; all confirmation-side writes belong to the worker.
type Server struct {
	log          zerolog.Logger
	cfg          *config.Config
	cms          CMS
	entitlements *paywall.EntitlementStore
	sessions     *paywall.SessionRegistry
	hub          *notify.Hub
	cookies      *sessions
	engine       *gin.Engine
	upgrader     websocket.Upgrader
}

// NewServer wires the request layer.
func NewServer(
	log zerolog.Logger,
	cfg *config.Config,
	cmsClient CMS,
	entitlements *paywall.EntitlementStore,
	sessionReg *paywall.SessionRegistry,
	hub *notify.Hub,
) *Server {
	s := &Server{
		log:          log.With().Str("component", "gateway").Logger(),
		cfg:          cfg,
		cms:          cmsClient,
		entitlements: entitlements,
		sessions:     sessionReg,
		hub:          hub,
		cookies:      newSessions(cfg.SessionSecret, cfg.SessionLifetime()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.SetHTMLTemplate(pages)

	engine.GET("/", s.handleWelcome)
	engine.GET("/ws", s.handleWebsocket)
	engine.GET("/:slug", s.handleSlug)

	s.engine = engine
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves HTTP on the configured listen address until the listener fails.
func (s *Server) Run() error {
	s.log.Info().Str("addr", s.cfg.ListenAddr).Msg("gateway listening")
	return s.engine.Run(s.cfg.ListenAddr)
}

func (s *Server) handleWelcome(c *gin.Context) {
	c.HTML(http.StatusOK, "welcome", nil)
}

// handleSlug is the paywall flow: make sure the slug exists, make sure the
// caller has a session, then either deliver the article or show the payment
// page.
func (s *Server) handleSlug(c *gin.Context) {
	slug := c.Param("slug")

	if !s.entitlements.Exists(slug) {
		exists, err := s.cms.Exists(c.Request.Context(), slug)
		if err != nil {
			// CMS unreachable degrades to "not available"; the slug is not
			// registered and the next request probes again.
			s.log.Warn().Err(err).Str("slug", slug).Msg("existence check failed")
		}
		if err != nil || !exists {
			c.String(http.StatusNotFound, "Slug not available")
			return
		}
		s.entitlements.Register(slug)
		s.log.Debug().Str("slug", slug).Msg("slug registered")
	}

	sessionID, err := s.sessionID(c)
	if err != nil {
		// First visit: establish the cookie and withhold payment details so
		// the token hash is only ever computed against a live session.
		_, cookie, err := s.cookies.mint()
		if err != nil {
			s.log.Error().Err(err).Msg("session mint failed")
			c.String(http.StatusInternalServerError, "")
			return
		}
		maxAge := int(s.cfg.SessionLifetime().Seconds())
		c.SetCookie(SessionCookie, cookie, maxAge, "/", "", false, true)
		s.log.Debug().Str("slug", slug).Msg("session minted")

		c.HTML(http.StatusOK, "pay", payPage{})
		return
	}

	tokenHash := TokenHash(sessionID)

	if s.entitlements.HasPaid(slug, tokenHash) {
		s.deliver(c, slug)
		return
	}

	c.HTML(http.StatusOK, "pay", payPage{
		HasDetails: true,
		Slug:       slug,
		TokenHash:  tokenHash,
		Address:    s.cfg.ReceivingAddress,
		Price:      s.cfg.Price,
	})
}

func (s *Server) deliver(c *gin.Context, slug string) {
	article, err := s.cms.Fetch(c.Request.Context(), slug)
	if err != nil {
		// The entitlement is recorded, only this fetch failed. No error page;
		// the client retries and gets the content.
		s.log.Error().Err(err).Str("slug", slug).Msg("content fetch failed")
		c.String(http.StatusOK, "Content temporarily unavailable, please retry")
		return
	}

	c.HTML(http.StatusOK, "article", articlePage{
		Title:     article.Title,
		Body:      template.HTML(article.HTML),
		OriginURL: article.OriginURL,
	})
}

// sessionID returns the verified session id from the request cookie.
func (s *Server) sessionID(c *gin.Context) (string, error) {
	cookie, err := c.Cookie(SessionCookie)
	if err != nil {
		return "", ErrInvalidSession
	}
	return s.cookies.verify(cookie)
}

// clientEvent is one frame received on the waiting socket.
type clientEvent struct {
	Type          string `json:"type"`
	UserTokenHash string `json:"user_token_hash"`
}

// handleWebsocket upgrades the connection and reads await_payment frames
// until the client goes away. Disconnects are logged only; a waiter already
// registered for this connection is left in place.
func (s *Server) handleWebsocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := s.hub.Register(conn)
	defer s.hub.Unregister(client.ID)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.log.Debug().Str("conn_id", client.ID).Msg("websocket disconnected")
			return
		}

		var ev clientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			s.log.Warn().Err(err).Str("conn_id", client.ID).Msg("ignoring undecodable frame")
			continue
		}

		if ev.Type == EventAwaitPayment && ev.UserTokenHash != "" {
			s.sessions.Wait(ev.UserTokenHash, client.ID)
			s.log.Debug().
				Str("conn_id", client.ID).
				Str("token_hash", ev.UserTokenHash).
				Msg("waiter registered")
		}
	}
}
