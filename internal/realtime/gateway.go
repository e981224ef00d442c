package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/admin-console-api/internal/models"
)

// TokenVerifier authenticates the websocket handshake. Satisfied by the
// session manager's request-scoped Verify.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.AccessClaims, error)
}

// GatewayConfig tunes the websocket endpoint.
type GatewayConfig struct {
	SendQueueSize  int
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// Gateway upgrades HTTP requests to websocket sessions and pumps broker
// events to the connected client.
type Gateway struct {
	broker   *Broker
	verifier TokenVerifier
	config   GatewayConfig
	logger   *zap.Logger
}

// NewGateway constructs a gateway bound to the broker.
func NewGateway(broker *Broker, verifier TokenVerifier, cfg GatewayConfig, logger *zap.Logger) *Gateway {
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = 64
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{broker: broker, verifier: verifier, config: cfg, logger: logger}
}

// Handle is the gin endpoint completing the websocket handshake. The token
// comes from the Authorization header or, for browser clients that cannot
// set headers on websocket dials, a query parameter.
func (g *Gateway) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		if header := c.GetHeader("Authorization"); len(header) > 7 {
			token = header[7:]
		}
	}

	claims, err := g.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: g.config.AllowedOrigins,
	})
	if err != nil {
		g.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	sessionID := uuid.NewString()
	client := NewClient(sessionID, claims.UserID, g.config.SendQueueSize)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	g.broker.Register(client)
	defer g.broker.Unregister(sessionID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case event := <-client.Send:
				writeCtx, cancelWrite := context.WithTimeout(ctx, g.config.WriteTimeout)
				err := wsjson.Write(writeCtx, conn, event)
				cancelWrite()
				if err != nil {
					g.logger.Debug("websocket write failed",
						zap.String("session_id", sessionID), zap.Error(err))
					return
				}
			}
		}
	}()

	// The console protocol is push-only; the read loop exists to observe
	// close frames and abrupt disconnects.
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}

	cancel()
	<-writerDone
	conn.Close(websocket.StatusNormalClosure, "bye")
}
