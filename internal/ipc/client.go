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
	if err := c.client.Call("Mixdown.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Mixdown.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Mixdown.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Assemble hands a pending episode to the worker runtime.
func (c *Client) Assemble(req AssembleRequest) (*AssembleResponse, error) {
	var resp AssembleResponse
	if err := c.client.Call("Mixdown.Assemble", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EpisodeList returns episodes optionally filtered by statuses.
func (c *Client) EpisodeList(statuses []string) (*EpisodeListResponse, error) {
	var resp EpisodeListResponse
	req := EpisodeListRequest{Statuses: statuses}
	if err := c.client.Call("Mixdown.EpisodeList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EpisodeDescribe returns a single episode by id.
func (c *Client) EpisodeDescribe(id int64) (*EpisodeDescribeResponse, error) {
	var resp EpisodeDescribeResponse
	if err := c.client.Call("Mixdown.EpisodeDescribe", EpisodeDescribeRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EpisodeRetry moves errored episodes back to pending.
func (c *Client) EpisodeRetry(ids []int64) (*EpisodeRetryResponse, error) {
	var resp EpisodeRetryResponse
	if err := c.client.Call("Mixdown.EpisodeRetry", EpisodeRetryRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EpisodeCancel flags an episode for cooperative cancellation.
func (c *Client) EpisodeCancel(id int64) (*EpisodeCancelResponse, error) {
	var resp EpisodeCancelResponse
	if err := c.client.Call("Mixdown.EpisodeCancel", EpisodeCancelRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EpisodeRemove deletes episodes by id.
func (c *Client) EpisodeRemove(ids []int64) (*EpisodeRemoveResponse, error) {
	var resp EpisodeRemoveResponse
	if err := c.client.Call("Mixdown.EpisodeRemove", EpisodeRemoveRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueReset resets in-flight episodes back to pending.
func (c *Client) QueueReset() (*QueueResetResponse, error) {
	var resp QueueResetResponse
	if err := c.client.Call("Mixdown.QueueReset", QueueResetRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueHealth retrieves aggregate queue diagnostics.
func (c *Client) QueueHealth() (*QueueHealthResponse, error) {
	var resp QueueHealthResponse
	if err := c.client.Call("Mixdown.QueueHealth", QueueHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DatabaseHealth retrieves detailed database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	var resp DatabaseHealthResponse
	if err := c.client.Call("Mixdown.DatabaseHealth", DatabaseHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
