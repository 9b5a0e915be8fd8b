package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/region-catalog/internal/catalog"
	"github.com/vyrodovalexey/region-catalog/internal/model"
)

const (
	sendBufferSize    = 32
	commandBufferSize = 32
)

var errUnknownCommand = errors.New("unknown command")

// session is one interactive catalog view bound to a WebSocket connection.
//
// Only the run goroutine touches the manager. readPump feeds commands and
// confirmation replies, writePump owns all writes to the connection.
type session struct {
	conn           *websocket.Conn
	service        CatalogService
	manager        *catalog.Manager
	confirmTimeout time.Duration
	logger         *zap.Logger

	send     chan model.WebSocketMessage
	commands chan model.SessionCommand
	replies  chan bool
	refresh  chan struct{}

	// set by Alert while a command is handled
	alerted bool
}

func newSession(
	conn *websocket.Conn,
	service CatalogService,
	confirmTimeout time.Duration,
	logger *zap.Logger,
) *session {
	return &session{
		conn:           conn,
		service:        service,
		confirmTimeout: confirmTimeout,
		logger:         logger,
		send:           make(chan model.WebSocketMessage, sendBufferSize),
		commands:       make(chan model.SessionCommand, commandBufferSize),
		replies:        make(chan bool, 1),
		refresh:        make(chan struct{}, 1),
	}
}

// Confirm sends a confirm message and waits for the client's reply. No reply
// within the confirm timeout counts as a decline.
func (s *session) Confirm(ctx context.Context, message string) bool {
	select {
	case <-s.replies:
	default:
	}

	s.enqueue(ctx, model.NewWebSocketMessage(model.WSMessageTypeConfirm, message))

	timer := time.NewTimer(s.confirmTimeout)
	defer timer.Stop()

	select {
	case answer := <-s.replies:
		return answer
	case <-timer.C:
		s.logger.Debug("confirmation timed out", zap.String("message", message))
		return false
	case <-ctx.Done():
		return false
	}
}

// Alert sends an alert message.
func (s *session) Alert(ctx context.Context, message string) {
	s.alerted = true
	s.enqueue(ctx, model.NewWebSocketMessage(model.WSMessageTypeAlert, message))
}

// notify is the event bus handler. It never blocks.
func (s *session) notify(model.ItemEvent) {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// run processes commands and refresh requests until ctx is done.
func (s *session) run(ctx context.Context) {
	s.sendState(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.commands:
			s.handle(ctx, cmd)
		case <-s.refresh:
			s.reload(ctx)
		}
	}
}

func (s *session) handle(ctx context.Context, cmd model.SessionCommand) {
	if cmd.Type == model.CmdPing {
		s.enqueue(ctx, model.NewWebSocketMessage(model.WSMessageTypePong, ""))
		return
	}

	s.alerted = false
	mutated, err := s.apply(ctx, cmd)
	if err != nil {
		s.logger.Debug("session command failed",
			zap.String("command", cmd.Type),
			zap.Error(err),
		)
		if !s.alerted {
			s.enqueue(ctx, model.NewWebSocketMessage(model.WSMessageTypeError, err.Error()))
		}
	}

	if mutated {
		s.reload(ctx)
		return
	}
	s.sendState(ctx)
}

// apply runs cmd against the manager and reports whether the item collection
// may have changed.
func (s *session) apply(ctx context.Context, cmd model.SessionCommand) (bool, error) {
	m := s.manager

	switch cmd.Type {
	case model.CmdSelectRegion:
		m.SelectRegion(cmd.Region)
	case model.CmdSetSearch:
		m.SetSearch(cmd.Search)
	case model.CmdSetField:
		return false, m.SetField(cmd.Field, cmd.Value)
	case model.CmdSetCopyTarget:
		m.SetCopyTarget(cmd.Region)
	case model.CmdEdit:
		return false, m.Edit(cmd.ID)
	case model.CmdSubmit:
		_, err := m.Submit(ctx)
		return err == nil, err
	case model.CmdDelete:
		deleted, err := m.Delete(ctx, cmd.ID)
		return deleted, err
	case model.CmdDeleteAll:
		n, err := m.DeleteAll(ctx)
		return n > 0, err
	case model.CmdCopy:
		copies, err := m.CopyToRegion(ctx)
		return len(copies) > 0, err
	case model.CmdMoveUp:
		return false, m.MoveUp(ctx, cmd.ID)
	case model.CmdMoveDown:
		return false, m.MoveDown(ctx, cmd.ID)
	default:
		return false, fmt.Errorf("%w: %s", errUnknownCommand, cmd.Type)
	}
	return false, nil
}

// reload replaces the item snapshot with the current collection.
func (s *session) reload(ctx context.Context) {
	items, err := s.service.Items(ctx)
	if err != nil {
		s.logger.Warn("failed to reload items", zap.Error(err))
		s.enqueue(ctx, model.NewWebSocketMessage(model.WSMessageTypeError, "failed to reload items"))
		return
	}
	s.manager.SetItems(items)
	s.sendState(ctx)
}

func (s *session) sendState(ctx context.Context) {
	s.enqueue(ctx, model.NewStateMessage(s.manager.View()))
}

func (s *session) enqueue(ctx context.Context, msg model.WebSocketMessage) {
	select {
	case s.send <- msg:
	case <-ctx.Done():
	}
}

// readPump decodes client commands. Confirmation replies bypass the command
// queue because the run goroutine may be blocked waiting for them.
func (s *session) readPump(ctx context.Context) {
	s.conn.SetReadLimit(maxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error("failed to set read deadline", zap.Error(err))
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		var cmd model.SessionCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			s.logger.Debug("invalid session command", zap.ByteString("message", message), zap.Error(err))
			s.enqueue(ctx, model.NewWebSocketMessage(model.WSMessageTypeError, "invalid message"))
			continue
		}

		if cmd.Type == model.CmdConfirmReply {
			select {
			case s.replies <- cmd.Confirmed:
			default:
			}
			continue
		}

		select {
		case s.commands <- cmd:
		case <-ctx.Done():
			return
		}
	}
}

// writePump writes queued messages and keep-alive pings to the connection.
func (s *session) writePump(ctx context.Context) {
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.sendCloseMessage()
			return
		case msg := <-s.send:
			if err := s.write(msg); err != nil {
				s.logger.Debug("failed to send message", zap.Error(err))
				return
			}
		case <-pingTicker.C:
			if err := s.sendPing(); err != nil {
				s.logger.Debug("failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

func (s *session) write(msg model.WebSocketMessage) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(msg)
}

// writeDirect is used before writePump runs.
func (s *session) writeDirect(msg model.WebSocketMessage) {
	if err := s.write(msg); err != nil {
		s.logger.Debug("failed to send message", zap.Error(err))
	}
}

// sendPing sends a ping message to the connection.
func (s *session) sendPing() error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

// sendCloseMessage sends a close message to the connection.
func (s *session) sendCloseMessage() {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Debug("failed to set write deadline for close", zap.Error(err))
		return
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down")
	if err := s.conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
		s.logger.Debug("failed to send close message", zap.Error(err))
	}
}
