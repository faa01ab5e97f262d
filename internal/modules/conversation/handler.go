package conversation

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"cognis/internal/middleware"
	"cognis/internal/modules/artifacts"
	"cognis/internal/pkg/response"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsWriteWait  = 10 * time.Second
	wsMaxMessage = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Callers are authenticated by token before the upgrade.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// wsQuestion is one client frame on /chat/ws.
type wsQuestion struct {
	Q     string `json:"q"`
	Limit int    `json:"limit"`
}

type wsReply struct {
	Success bool       `json:"success"`
	Data    *Answer    `json:"data,omitempty"`
	Error   *wsProblem `json:"error,omitempty"`
}

type wsProblem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	g := protected.Group("/chat")
	{
		g.GET("/conv/:file_id", h.Conv)
		g.GET("/ws/:file_id", h.WebSocket)
	}
}

func (h *Handler) Conv(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeValidation, ErrInvalidLimit.Error())
			return
		}
		limit = n
	}

	answer, err := h.service.Ask(c.Request.Context(), c.Param("file_id"), c.Query("q"), limit)
	if err != nil {
		status, code, msg := classify(err)
		if status == http.StatusInternalServerError {
			_ = c.Error(err)
		}
		response.Error(c, status, code, msg)
		return
	}
	response.Success(c, http.StatusOK, answer)
}

// WebSocket answers each {"q","limit"} frame the way Conv does.
func (h *Handler) WebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("chat_ws_upgrade_failed err=%v", err)
		return
	}
	defer conn.Close()

	userID := ""
	if user, ok := middleware.CurrentUser(c); ok {
		userID = user.ID
	}
	fileID := c.Param("file_id")

	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go pingLoop(conn, done)

	ctx := c.Request.Context()
	for {
		var q wsQuestion
		if err := conn.ReadJSON(&q); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("chat_ws_read_failed user_id=%s file_id=%s err=%v", userID, fileID, err)
			}
			return
		}

		reply := h.answer(ctx, fileID, q)
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			log.Printf("chat_ws_write_failed user_id=%s file_id=%s err=%v", userID, fileID, err)
			return
		}
	}
}

func (h *Handler) answer(ctx context.Context, fileID string, q wsQuestion) wsReply {
	answer, err := h.service.Ask(ctx, fileID, q.Q, q.Limit)
	if err != nil {
		status, code, msg := classify(err)
		if status == http.StatusInternalServerError {
			log.Printf("chat_ws_answer_failed file_id=%s err=%v", fileID, err)
		}
		return wsReply{Error: &wsProblem{Code: code, Message: msg}}
	}
	return wsReply{Success: true, Data: answer}
}

func pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, ErrQueryTooShort), errors.Is(err, ErrEmptyQuery), errors.Is(err, ErrInvalidLimit):
		return http.StatusBadRequest, response.CodeValidation, err.Error()
	case errors.Is(err, artifacts.ErrFileNotFound):
		return http.StatusNotFound, response.CodeFileNotFound, "UFDR file not found"
	default:
		return http.StatusInternalServerError, response.CodeInternal, "Failed to answer query"
	}
}
