package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/trading"
)

const (
	writeWait       = 5 * time.Second
	broadcastBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event는 구독자에게 보내는 이벤트 형식입니다
type Event struct {
	Type   string      `json:"type"`
	PairID string      `json:"pair_id,omitempty"`
	Time   time.Time   `json:"time"`
	Data   interface{} `json:"data"`
}

// Command는 구독자가 보내는 수동 명령입니다.
// command는 open, close, resume 중 하나이고 open은 signal(long/short)이 필요합니다.
type Command struct {
	Command string `json:"command"`
	PairID  string `json:"pair_id"`
	Signal  string `json:"signal,omitempty"`
}

// CommandHandler는 명령 메시지를 페어 코어에 전달하고 받아들인 코어 수를 반환합니다
type CommandHandler func(msg trading.Message) int

// Hub는 발행 이벤트를 웹소켓 구독자 전체에 중계합니다
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	lock      sync.Mutex
	commands  CommandHandler
	dropped   int
}

// NewHub는 새 Hub를 생성합니다. commands가 nil이면 명령을 받지 않습니다
func NewHub(commands CommandHandler) *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, broadcastBuffer),
		commands:  commands,
	}
}

// Run은 ctx가 끝날 때까지 이벤트를 구독자에게 씁니다
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case message := <-h.broadcast:
			h.lock.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					client.Close()
					delete(h.clients, client)
				}
			}
			h.lock.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.lock.Lock()
	defer h.lock.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}

// ClientCount는 연결된 구독자 수를 반환합니다
func (h *Hub) ClientCount() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// ServeHTTP는 웹소켓 연결을 받아 구독자로 등록합니다
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("웹소켓 업그레이드 실패: %v", err)
		return
	}
	h.lock.Lock()
	h.clients[conn] = true
	h.lock.Unlock()

	go h.readLoop(conn)
}

// readLoop는 구독자 명령을 읽습니다. 읽기 실패는 연결 종료로 봅니다
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer func() {
		h.lock.Lock()
		delete(h.clients, conn)
		h.lock.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			log.Printf("잘못된 명령 형식: %v", err)
			continue
		}
		msg, err := cmd.Message()
		if err != nil {
			log.Printf("명령 거부 (%s): %v", cmd.PairID, err)
			continue
		}
		if h.commands == nil {
			continue
		}
		if n := h.commands(msg); n == 0 {
			log.Printf("명령을 받을 페어가 없습니다: %s", cmd.PairID)
		}
	}
}

// Message는 명령을 엔진 메시지로 변환합니다
func (c Command) Message() (trading.Message, error) {
	if c.PairID == "" {
		return nil, errors.New("pair_id가 비어있습니다")
	}
	switch strings.ToLower(c.Command) {
	case "open":
		switch strings.ToLower(c.Signal) {
		case "long":
			return trading.OpenPositionMsg{PairID: c.PairID, Signal: domain.Long}, nil
		case "short":
			return trading.OpenPositionMsg{PairID: c.PairID, Signal: domain.Short}, nil
		}
		return nil, errors.New("signal은 long 또는 short이어야 합니다")
	case "close":
		return trading.ClosePositionMsg{PairID: c.PairID}, nil
	case "resume":
		return trading.ResumeMsg{PairID: c.PairID}, nil
	}
	return nil, errors.New("알 수 없는 명령: " + c.Command)
}

// Serve는 addr에서 /ws 엔드포인트를 열고 ctx가 끝나면 서버를 닫습니다
func (h *Hub) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("텔레메트리 서버 시작: %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// publish는 이벤트를 직렬화해 전송 대기열에 넣습니다. 대기열이 가득 차면 버립니다
func (h *Hub) publish(kind, pairID string, at time.Time, data interface{}) {
	if at.IsZero() {
		at = time.Now()
	}
	payload, err := json.Marshal(Event{Type: kind, PairID: pairID, Time: at, Data: data})
	if err != nil {
		log.Printf("이벤트 직렬화 실패 (%s): %v", kind, err)
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.lock.Lock()
		h.dropped++
		h.lock.Unlock()
	}
}
