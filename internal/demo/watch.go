package demo

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gorilla/websocket"

	"github.com/noah-isme/truthguard-go-api/internal/dto"
)

// Watch prints live feed events from feedURL until ctx ends or the server closes the stream.
func Watch(ctx context.Context, feedURL string, out io.Writer) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, feedURL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial feed: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial feed: %w", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-stop:
			return
		case <-ctx.Done():
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		var event dto.FeedEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read feed: %w", err)
		}

		fmt.Fprintf(out, "%s %-9s %s\n", event.SentAt.Local().Format(time.TimeOnly), event.Type, string(event.Payload))
	}
}
