package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Reelforge.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop and exit.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Reelforge.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueList returns jobs optionally filtered by statuses and category.
func (c *Client) QueueList(statuses []string, category string) (*QueueListResponse, error) {
	var resp QueueListResponse
	req := QueueListRequest{Statuses: statuses, Category: category}
	if err := c.client.Call("Reelforge.QueueList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueStats returns aggregate queue counts.
func (c *Client) QueueStats() (*QueueStatsResponse, error) {
	var resp QueueStatsResponse
	if err := c.client.Call("Reelforge.QueueStats", QueueStatsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueHealth retrieves detailed queue database diagnostics.
func (c *Client) QueueHealth() (*QueueHealthResponse, error) {
	var resp QueueHealthResponse
	if err := c.client.Call("Reelforge.QueueHealth", QueueHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Enqueue inserts a single job.
func (c *Client) Enqueue(req EnqueueRequest) (*EnqueueResponse, error) {
	var resp EnqueueResponse
	if err := c.client.Call("Reelforge.Enqueue", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EnqueueBatch enqueues a topics file and returns the run report.
func (c *Client) EnqueueBatch(req EnqueueBatchRequest) (*EnqueueBatchResponse, error) {
	var resp EnqueueBatchResponse
	if err := c.client.Call("Reelforge.EnqueueBatch", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueRetry resets failed and stuck jobs, optionally scoped to a category.
func (c *Client) QueueRetry(category string) (*QueueRetryResponse, error) {
	var resp QueueRetryResponse
	req := QueueRetryRequest{Category: category}
	if err := c.client.Call("Reelforge.QueueRetry", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueReset returns one job to pending.
func (c *Client) QueueReset(id string) (*QueueResetResponse, error) {
	var resp QueueResetResponse
	req := QueueResetRequest{ID: id}
	if err := c.client.Call("Reelforge.QueueReset", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FailStuck fails jobs stuck in processing past the timeout.
func (c *Client) FailStuck(timeoutSeconds int) (*FailStuckResponse, error) {
	var resp FailStuckResponse
	req := FailStuckRequest{TimeoutSeconds: timeoutSeconds}
	if err := c.client.Call("Reelforge.FailStuck", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Rate records an operator rating for a job.
func (c *Client) Rate(id string, rating int) (*RateResponse, error) {
	var resp RateResponse
	req := RateRequest{ID: id, Rating: rating}
	if err := c.client.Call("Reelforge.Rate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueDelete removes a single job.
func (c *Client) QueueDelete(id string) (*QueueDeleteResponse, error) {
	var resp QueueDeleteResponse
	req := QueueDeleteRequest{ID: id}
	if err := c.client.Call("Reelforge.QueueDelete", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueClear removes finished jobs by status, or everything when status is
// empty.
func (c *Client) QueueClear(status string) (*QueueClearResponse, error) {
	var resp QueueClearResponse
	req := QueueClearRequest{Status: status}
	if err := c.client.Call("Reelforge.QueueClear", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CacheClearExpired evicts expired response cache entries.
func (c *Client) CacheClearExpired() (*CacheClearExpiredResponse, error) {
	var resp CacheClearExpiredResponse
	if err := c.client.Call("Reelforge.CacheClearExpired", CacheClearExpiredRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Reelforge.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Reelforge.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
