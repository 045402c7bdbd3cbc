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

// DaemonStatus retrieves daemon runtime information.
func (c *Client) DaemonStatus() (*DaemonStatusResponse, error) {
	var resp DaemonStatusResponse
	if err := c.client.Call("Upkeep.DaemonStatus", DaemonStatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Operations retrieves the operation catalog.
func (c *Client) Operations() (*OperationsResponse, error) {
	var resp OperationsResponse
	if err := c.client.Call("Upkeep.Operations", OperationsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RunStart starts a maintenance run over the named operations.
func (c *Client) RunStart(operations []string) (*RunStartResponse, error) {
	var resp RunStartResponse
	if err := c.client.Call("Upkeep.RunStart", RunStartRequest{Operations: operations}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RunSkip skips the currently executing operation.
func (c *Client) RunSkip(epoch uint64) (*RunSkipResponse, error) {
	var resp RunSkipResponse
	if err := c.client.Call("Upkeep.RunSkip", RunSkipRequest{Epoch: epoch}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RunCancel cancels a run after its current operation finishes.
func (c *Client) RunCancel(epoch uint64) (*RunCancelResponse, error) {
	var resp RunCancelResponse
	if err := c.client.Call("Upkeep.RunCancel", RunCancelRequest{Epoch: epoch}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RunStatus retrieves status for a run epoch. Zero selects the most
// recent run.
func (c *Client) RunStatus(epoch uint64) (*RunStatusResponse, error) {
	var resp RunStatusResponse
	if err := c.client.Call("Upkeep.RunStatus", RunStatusRequest{Epoch: epoch}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StreamFetch pulls buffered events for a run epoch.
func (c *Client) StreamFetch(req StreamFetchRequest) (*StreamFetchResponse, error) {
	var resp StreamFetchResponse
	if err := c.client.Call("Upkeep.StreamFetch", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobResult fetches the result record for a job id.
func (c *Client) JobResult(jobID string) (*JobResultResponse, error) {
	var resp JobResultResponse
	if err := c.client.Call("Upkeep.JobResult", JobResultRequest{JobID: jobID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail reads daemon log lines from the given offset.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Upkeep.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification asks the daemon to send a test push alert.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Upkeep.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScheduleList lists persisted schedules.
func (c *Client) ScheduleList() (*ScheduleListResponse, error) {
	var resp ScheduleListResponse
	if err := c.client.Call("Upkeep.ScheduleList", ScheduleListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScheduleGet fetches a single schedule by id.
func (c *Client) ScheduleGet(id string) (*ScheduleGetResponse, error) {
	var resp ScheduleGetResponse
	if err := c.client.Call("Upkeep.ScheduleGet", ScheduleGetRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScheduleCreate persists a new schedule.
func (c *Client) ScheduleCreate(req ScheduleCreateRequest) (*ScheduleCreateResponse, error) {
	var resp ScheduleCreateResponse
	if err := c.client.Call("Upkeep.ScheduleCreate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScheduleUpdate replaces an existing schedule definition.
func (c *Client) ScheduleUpdate(req ScheduleUpdateRequest) (*ScheduleUpdateResponse, error) {
	var resp ScheduleUpdateResponse
	if err := c.client.Call("Upkeep.ScheduleUpdate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScheduleDelete removes a schedule by id.
func (c *Client) ScheduleDelete(id string) (*ScheduleDeleteResponse, error) {
	var resp ScheduleDeleteResponse
	if err := c.client.Call("Upkeep.ScheduleDelete", ScheduleDeleteRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScheduleRunNow fires a schedule immediately.
func (c *Client) ScheduleRunNow(id string) (*ScheduleRunNowResponse, error) {
	var resp ScheduleRunNowResponse
	if err := c.client.Call("Upkeep.ScheduleRunNow", ScheduleRunNowRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
