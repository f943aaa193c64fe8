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

// Start requests the daemon to start processing.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Soundcheck.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Soundcheck.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Soundcheck.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Soundcheck.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DatabaseHealth retrieves detailed database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	var resp DatabaseHealthResponse
	if err := c.client.Call("Soundcheck.DatabaseHealth", DatabaseHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Soundcheck.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueList returns queue items optionally filtered by statuses.
func (c *Client) QueueList(statuses []string) (*QueueListResponse, error) {
	var resp QueueListResponse
	req := QueueListRequest{Statuses: statuses}
	if err := c.client.Call("Soundcheck.QueueList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueDescribe returns details for a single queue item.
func (c *Client) QueueDescribe(id int64) (*QueueDescribeResponse, error) {
	var resp QueueDescribeResponse
	req := QueueDescribeRequest{ID: id}
	if err := c.client.Call("Soundcheck.QueueDescribe", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueClear removes all items from the queue.
func (c *Client) QueueClear() (*QueueClearResponse, error) {
	var resp QueueClearResponse
	if err := c.client.Call("Soundcheck.QueueClear", QueueClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueClearCompleted removes only completed items from the queue.
func (c *Client) QueueClearCompleted() (*QueueClearCompletedResponse, error) {
	var resp QueueClearCompletedResponse
	if err := c.client.Call("Soundcheck.QueueClearCompleted", QueueClearCompletedRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueClearFailed removes failed items from the queue.
func (c *Client) QueueClearFailed() (*QueueClearFailedResponse, error) {
	var resp QueueClearFailedResponse
	if err := c.client.Call("Soundcheck.QueueClearFailed", QueueClearFailedRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueReset resets items stuck in processing states.
func (c *Client) QueueReset() (*QueueResetResponse, error) {
	var resp QueueResetResponse
	if err := c.client.Call("Soundcheck.QueueReset", QueueResetRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueRetry retries failed items.
func (c *Client) QueueRetry(ids []int64) (*QueueRetryResponse, error) {
	var resp QueueRetryResponse
	req := QueueRetryRequest{IDs: ids}
	if err := c.client.Call("Soundcheck.QueueRetry", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueHealth returns queue diagnostics.
func (c *Client) QueueHealth() (*QueueHealthResponse, error) {
	var resp QueueHealthResponse
	if err := c.client.Call("Soundcheck.QueueHealth", QueueHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping probes daemon liveness.
func (c *Client) Ping() (*PingResponse, error) {
	var resp PingResponse
	if err := c.client.Call("Soundcheck.Ping", PingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.client.Call("Soundcheck.Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueRemove removes specific queue items by ID.
func (c *Client) QueueRemove(ids []int64) (*QueueRemoveResponse, error) {
	var resp QueueRemoveResponse
	if err := c.client.Call("Soundcheck.QueueRemove", QueueRemoveRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueStop stops in-flight queue items.
func (c *Client) QueueStop(ids []int64) (*QueueStopResponse, error) {
	var resp QueueStopResponse
	if err := c.client.Call("Soundcheck.QueueStop", QueueStopRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Enqueue submits a URL or local path for processing.
func (c *Client) Enqueue(req EnqueueRequest) (*EnqueueResponse, error) {
	var resp EnqueueResponse
	if err := c.client.Call("Soundcheck.Enqueue", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TrackList returns library tracks filtered by kind and set.
func (c *Client) TrackList(req TrackListRequest) (*TrackListResponse, error) {
	var resp TrackListResponse
	if err := c.client.Call("Soundcheck.TrackList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TrackShow fetches a single library track.
func (c *Client) TrackShow(id int64) (*TrackShowResponse, error) {
	var resp TrackShowResponse
	if err := c.client.Call("Soundcheck.TrackShow", TrackShowRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TrackSimilar ranks library tracks by similarity to the given track.
func (c *Client) TrackSimilar(id int64, limit int) (*TrackSimilarResponse, error) {
	var resp TrackSimilarResponse
	if err := c.client.Call("Soundcheck.TrackSimilar", TrackSimilarRequest{ID: id, Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetList returns all reference sets.
func (c *Client) SetList() (*SetListResponse, error) {
	var resp SetListResponse
	if err := c.client.Call("Soundcheck.SetList", SetListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetCreate registers a new reference set.
func (c *Client) SetCreate(req SetCreateRequest) (*SetCreateResponse, error) {
	var resp SetCreateResponse
	if err := c.client.Call("Soundcheck.SetCreate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetRemove deletes a reference set by name.
func (c *Client) SetRemove(name string) (*SetRemoveResponse, error) {
	var resp SetRemoveResponse
	if err := c.client.Call("Soundcheck.SetRemove", SetRemoveRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProfileShow fetches the latest profile snapshot for a set.
func (c *Client) ProfileShow(req ProfileShowRequest) (*ProfileShowResponse, error) {
	var resp ProfileShowResponse
	if err := c.client.Call("Soundcheck.ProfileShow", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProfileBuild rebuilds and stores the profile for a set.
func (c *Client) ProfileBuild(setName string) (*ProfileBuildResponse, error) {
	var resp ProfileBuildResponse
	if err := c.client.Call("Soundcheck.ProfileBuild", ProfileBuildRequest{SetName: setName}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
