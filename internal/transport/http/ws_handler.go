package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"trivia-duel-service/internal/app"
	"trivia-duel-service/internal/auth"
	"trivia-duel-service/internal/domain"
	"trivia-duel-service/internal/game"
	"trivia-duel-service/internal/questions"
)

const recordTimeout = 5 * time.Second

type WSHandler struct {
	service  *app.GameService
	cfg      game.Config
	opts     []game.Option
	upgrader websocket.Upgrader
}

// NewWSHandler serves one game session per websocket connection. Options are
// passed to every game.Machine, which lets tests drive the clock.
func NewWSHandler(service *app.GameService, cfg game.Config, opts ...game.Option) *WSHandler {
	return &WSHandler{
		service: service,
		cfg:     cfg,
		opts:    opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startAIPayload struct {
	Game domain.AIGame `json:"game"`
}

type startChallengePayload struct {
	Kind  string `json:"kind"`
	Token string `json:"token"`
	ID    string `json:"id"`
}

type capabilitiesPayload struct {
	WalletConnected bool   `json:"walletConnected"`
	Address         string `json:"address"`
}

type answerPayload struct {
	Option int `json:"option"`
}

type summaryPayload struct {
	game.Summary
	Title         string            `json:"title"`
	ShareText     string            `json:"shareText"`
	Authenticated bool              `json:"authenticated"`
	Progression   *app.ResultRecord `json:"progression,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// connection is the per-socket state shared by the reader loop and the machine listener.
type connection struct {
	handler *WSHandler
	claims  *auth.PlayerClaims
	locale  string
	machine *game.Machine
	send    chan outboundMessage[any]
	closed  chan struct{}
}

// ServeWS upgrades the request and runs a game session until the client disconnects.
// A token is optional; guests play without progression.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	var claims *auth.PlayerClaims
	if token := requestToken(r); token != "" {
		c, err := h.service.Authenticate(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		claims = c
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := &connection{
		handler: h,
		claims:  claims,
		locale:  h.service.Catalog().Resolve(r.URL.Query().Get("locale")),
		send:    make(chan outboundMessage[any], 16),
		closed:  make(chan struct{}),
	}
	opts := append(append([]game.Option(nil), h.opts...), game.WithListener(c.onEvent))
	c.machine = game.NewMachine(h.cfg, opts...)
	c.machine.UpdateCapabilities(game.Capabilities{Authenticated: claims != nil})

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-c.send:
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			case <-c.closed:
				return
			}
		}
	}()

	c.emit("state", c.machine.Snapshot())

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := c.handle(r.Context(), inbound); err != nil {
			c.emit("error", errorPayload{Message: err.Error()})
		}
	}

	c.machine.Close()
	close(c.closed)
	<-writerDone
}

func (c *connection) handle(ctx context.Context, in inboundMessage) error {
	svc := c.handler.service
	m := c.machine
	switch in.Type {
	case "startClassic":
		qs, err := svc.ClassicQuestions(ctx, c.locale)
		if err != nil {
			return err
		}
		return m.Load(game.Setup{Questions: qs})
	case "startAI":
		var p startAIPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		if err := questions.ValidateAIGame(p.Game); err != nil {
			return err
		}
		return m.Load(game.Setup{Questions: p.Game.Questions, AIGame: true, Topic: p.Game.Topic})
	case "startChallenge":
		var p startChallengePayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		ref := p.Token
		if p.Kind == "ai" {
			ref = p.ID
		}
		ch, err := svc.ChallengeFor(ctx, p.Kind, ref, c.locale)
		if err != nil {
			return err
		}
		return m.Load(game.Setup{
			Questions: ch.Questions,
			AIGame:    ch.AIGame,
			Topic:     ch.Topic,
			Challenge: &game.ChallengeInfo{
				ID:          ch.ID,
				ScoreToBeat: ch.ScoreToBeat,
				Wager:       ch.Wager,
				Challenger:  ch.Challenger,
				Message:     ch.Message,
			},
		})
	case "capabilities":
		var p capabilitiesPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		m.UpdateCapabilities(game.Capabilities{
			Authenticated:   c.claims != nil,
			WalletConnected: p.WalletConnected,
			Address:         p.Address,
		})
		c.emit("state", m.Snapshot())
		return nil
	case "acceptWager":
		return m.AcceptWager()
	case "declineWager":
		return m.DeclineWager()
	case "answer":
		var p answerPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		_, err := m.Answer(p.Option)
		return err
	case "fiftyFifty":
		if !m.UseFiftyFifty() {
			return errors.New("fifty-fifty is not available")
		}
		return nil
	case "timeBoost":
		if !m.UseTimeBoost() {
			return errors.New("time boost is not available")
		}
		return nil
	case "restart":
		m.Restart()
		return nil
	default:
		return errors.New("unsupported message type")
	}
}

// onEvent runs on the reader goroutine or a scheduler timer, never under the machine lock.
func (c *connection) onEvent(e game.Event) {
	switch e.Kind {
	case game.EventAnswer:
		c.emit("answerResult", e.Answer)
		c.emit("state", e.View)
	case game.EventSummary:
		c.emit("summary", c.summarize(*e.Summary))
	default:
		c.emit("state", e.View)
	}
}

func (c *connection) summarize(sum game.Summary) summaryPayload {
	svc := c.handler.service
	out := summaryPayload{
		Summary:       sum,
		Title:         svc.SummaryTitle(c.locale, sum.Outcome),
		ShareText:     svc.ShareText(c.locale, sum),
		Authenticated: c.claims != nil,
	}
	if c.claims == nil {
		return out
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	rec := svc.RecordResult(ctx, c.claims.PlayerID, c.locale, sum)
	out.Progression = &rec
	return out
}

func (c *connection) emit(kind string, payload any) {
	select {
	case c.send <- outboundMessage[any]{Type: kind, Payload: payload}:
	case <-c.closed:
	}
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return domain.Invalid("payload", "payload is required")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.Invalid("payload", "invalid payload")
	}
	return nil
}
