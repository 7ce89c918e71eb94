package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"transient-filter/internal/domain"
	"transient-filter/internal/observability"
	"transient-filter/internal/schema"
)

// FirehoseConfig configures WebSocket firehose behavior.
type FirehoseConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultFirehoseConfig returns default firehose configuration.
func DefaultFirehoseConfig() FirehoseConfig {
	return FirehoseConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// FirehoseSource consumes one survey's alert stream from a broker firehose
// WebSocket endpoint. It reconnects with exponential backoff and renews the
// subscription after every reconnect, so the alert channel survives broker
// restarts.
type FirehoseSource struct {
	endpoint string
	survey   string
	config   FirehoseConfig
	mapper   schema.Mapper
	logger   *log.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subID is the active subscription, zero when none
	subID atomic.Int64

	// pending maps request ID to channel waiting for subscription ID
	pending   map[uint64]chan int64
	pendingMu sync.Mutex

	out  chan domain.Alert
	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

var _ AlertSource = (*FirehoseSource)(nil)

// NewFirehoseSource creates a firehose source and connects to the endpoint.
func NewFirehoseSource(ctx context.Context, endpoint, survey string, config *FirehoseConfig, logger *log.Logger) (*FirehoseSource, error) {
	mapper, err := schema.ForSurvey(survey)
	if err != nil {
		return nil, err
	}

	cfg := DefaultFirehoseConfig()
	if config != nil {
		cfg = *config
	}

	if logger == nil {
		logger = log.Default()
	}

	s := &FirehoseSource{
		endpoint: endpoint,
		survey:   survey,
		config:   cfg,
		mapper:   mapper,
		logger:   logger,
		pending:  make(map[uint64]chan int64),
		// Large buffer absorbs bursts; blocking send keeps alerts from dropping
		out:  make(chan domain.Alert, 10000),
		done: make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// connect establishes the WebSocket connection.
func (s *FirehoseSource) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// Subscribe requests the survey's alert stream and returns the alert channel.
func (s *FirehoseSource) Subscribe(ctx context.Context) (<-chan domain.Alert, error) {
	subID, err := s.subscribe(ctx)
	if err != nil {
		return nil, err
	}

	s.subID.Store(subID)
	return s.out, nil
}

// subscribe sends the subscribe request and waits for confirmation.
func (s *FirehoseSource) subscribe(ctx context.Context) (int64, error) {
	if s.closed.Load() {
		return 0, fmt.Errorf("source closed")
	}

	reqID := s.requestID.Add(1)

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "alerts.subscribe",
		Params:  []interface{}{s.survey},
	}

	confirmCh := make(chan int64, 1)
	s.pendingMu.Lock()
	s.pending[reqID] = confirmCh
	s.pendingMu.Unlock()

	clearPending := func() {
		s.pendingMu.Lock()
		delete(s.pending, reqID)
		s.pendingMu.Unlock()
	}

	s.connMu.Lock()
	if s.conn == nil {
		s.connMu.Unlock()
		clearPending()
		return 0, fmt.Errorf("not connected")
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	err := s.conn.WriteJSON(req)
	s.connMu.Unlock()

	if err != nil {
		clearPending()
		return 0, fmt.Errorf("write subscribe: %w", err)
	}

	// Wait for subscription confirmation (30s covers slow brokers)
	select {
	case subID := <-confirmCh:
		return subID, nil
	case <-time.After(30 * time.Second):
		clearPending()
		return 0, fmt.Errorf("subscription timeout after 30s")
	case <-s.done:
		return 0, fmt.Errorf("source closed")
	case <-ctx.Done():
		clearPending()
		return 0, ctx.Err()
	}
}

// Close closes the WebSocket connection and the alert channel.
func (s *FirehoseSource) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.pendingMu.Lock()
	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
	s.pendingMu.Unlock()

	s.wg.Wait()
	close(s.out)
	return nil
}

// readLoop reads messages from the WebSocket and dispatches them.
func (s *FirehoseSource) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			// Connection error - attempt reconnect with exponential backoff
			if !s.reconnecting.Swap(true) {
				go s.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > s.config.MaxReconnectDelay {
				reconnectDelay = s.config.MaxReconnectDelay
			}

			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = s.config.ReconnectDelay

		s.handleMessage(message)
	}
}

// reconnect attempts to reconnect and renew the subscription.
func (s *FirehoseSource) reconnect(delay time.Duration) {
	defer s.reconnecting.Store(false)

	if s.closed.Load() {
		return
	}

	select {
	case <-s.done:
		return
	case <-time.After(delay):
	}

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}

	s.logger.Printf("[firehose] reconnected to %s", s.endpoint)

	// Renew the subscription on the new connection
	if s.subID.Load() != 0 {
		subCtx, subCancel := context.WithTimeout(context.Background(), 10*time.Second)
		newSubID, err := s.subscribe(subCtx)
		subCancel()

		if err != nil {
			s.logger.Printf("[firehose] resubscribe %s: %v", s.survey, err)
			return
		}

		s.subID.Store(newSubID)
	}
}

// handleMessage processes one incoming WebSocket message.
func (s *FirehoseSource) handleMessage(message []byte) {
	// Try to parse as subscription response first
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.Result > 0 {
		s.handleSubscribeResponse(&resp)
		return
	}

	// Try to parse as alert notification
	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Method == "alerts.notification" {
		s.handleAlertNotification(&notif)
		return
	}

	// Check for error response
	var errResp struct {
		JSONRPC string `json:"jsonrpc"`
		ID      uint64 `json:"id"`
		Error   *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(message, &errResp); err == nil && errResp.Error != nil {
		s.logger.Printf("[firehose] error response: code=%d msg=%s", errResp.Error.Code, errResp.Error.Message)
	}
}

// handleSubscribeResponse handles subscription confirmation.
func (s *FirehoseSource) handleSubscribeResponse(resp *wsSubscribeResponse) {
	s.pendingMu.Lock()
	ch, ok := s.pending[resp.ID]
	if ok {
		delete(s.pending, resp.ID)
	}
	s.pendingMu.Unlock()

	if ok {
		select {
		case ch <- resp.Result:
		default:
		}
	}
}

// handleAlertNotification decodes the embedded survey payload and delivers it.
func (s *FirehoseSource) handleAlertNotification(notif *wsNotification) {
	if notif.Params == nil || len(notif.Params.Result) == 0 {
		return
	}

	alert, err := s.mapper.Map(notif.Params.Result)
	if err != nil {
		observability.RecordDecodeError()
		s.logger.Printf("[firehose] decode alert: %v", err)
		return
	}
	alert.ReceivedAt = time.Now().UTC()

	// Block until we can send - never drop alerts
	select {
	case s.out <- alert:
	case <-s.done:
		return
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *FirehoseSource) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			s.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"` // subscription ID
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64           `json:"subscription"`
	Result       json.RawMessage `json:"result"` // raw survey alert payload
}
