package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/signroom/internal/attachments"
	"github.com/MarcoPoloResearchLab/signroom/internal/auth"
	"github.com/MarcoPoloResearchLab/signroom/internal/contracts"
	"github.com/MarcoPoloResearchLab/signroom/internal/notify"
	"github.com/MarcoPoloResearchLab/signroom/internal/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	participantContextKey    = "signroom_participant"
	defaultHeartbeatInterval = 25 * time.Second
)

var (
	errMissingSessionValidator = errors.New("session validator dependency required")
	errMissingParticipants     = errors.New("participant resolver dependency required")
	errMissingWorkflow         = errors.New("workflow service dependency required")
	errMissingAttachments      = errors.New("attachment service dependency required")
	errMissingHub              = errors.New("notice hub dependency required")
)

// SessionValidator authenticates a request.
type SessionValidator interface {
	ValidateRequest(r *http.Request) (auth.SessionClaims, error)
}

// ParticipantResolver maps validated claims to the acting participant.
type ParticipantResolver interface {
	ResolveParticipant(claims auth.SessionClaims) (contracts.Participant, error)
}

// Dependencies wires the HTTP surface to its collaborators.
type Dependencies struct {
	Sessions          SessionValidator
	Participants      ParticipantResolver
	Workflow          *workflow.Service
	Attachments       *attachments.Service
	Hub               *notify.Hub
	Logger            *zap.Logger
	AllowedOrigins    []string
	HeartbeatInterval time.Duration
}

// NewHTTPHandler builds the gin router.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Sessions == nil {
		return nil, errMissingSessionValidator
	}
	if deps.Participants == nil {
		return nil, errMissingParticipants
	}
	if deps.Workflow == nil {
		return nil, errMissingWorkflow
	}
	if deps.Attachments == nil {
		return nil, errMissingAttachments
	}
	if deps.Hub == nil {
		return nil, errMissingHub
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		sessions:     deps.Sessions,
		participants: deps.Participants,
		workflow:     deps.Workflow,
		attachments:  deps.Attachments,
		hub:          deps.Hub,
		logger:       logger,
		heartbeat:    heartbeat,
	}

	router.GET("/healthz", handler.handleHealth)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/contracts", handler.handleSubmitContract)
	protected.GET("/contracts", handler.handleListContracts)
	protected.GET("/contracts/stats", handler.handleContractStats)
	protected.GET("/contracts/:id", handler.handleGetContract)
	protected.GET("/contracts/:id/fields", handler.handleResolveFields)
	protected.POST("/contracts/:id/sign", handler.handleSignContract)
	protected.POST("/contracts/:id/reject", handler.handleRejectContract)
	protected.POST("/drafts/generate", handler.handleGenerateDraft)
	protected.POST("/attachments", handler.handleUploadAttachment)
	protected.GET("/attachments/:id", handler.handleGetAttachment)
	protected.GET("/events", handler.handleEvents)

	return router, nil
}

type httpHandler struct {
	sessions     SessionValidator
	participants ParticipantResolver
	workflow     *workflow.Service
	attachments  *attachments.Service
	hub          *notify.Hub
	logger       *zap.Logger
	heartbeat    time.Duration
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	claims, err := h.sessions.ValidateRequest(c.Request)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredSessionToken) || errors.Is(err, auth.ErrMissingSessionToken) {
			h.logger.Info("session validation failed", zap.Error(err))
		} else {
			h.logger.Warn("session validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	participant, err := h.participants.ResolveParticipant(claims)
	if err != nil {
		h.logger.Error("participant resolution failed", zap.String("user_id", claims.UserID), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(participantContextKey, participant)
	c.Next()
}

func currentParticipant(c *gin.Context) (contracts.Participant, bool) {
	value, ok := c.Get(participantContextKey)
	if !ok {
		return contracts.Participant{}, false
	}
	participant, ok := value.(contracts.Participant)
	return participant, ok
}
