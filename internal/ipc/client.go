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
	if err := c.client.Call("MediaButler.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests daemon shutdown.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("MediaButler.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReloadLibrary rebuilds the classifier corpus.
func (c *Client) ReloadLibrary() (*ReloadLibraryResponse, error) {
	var resp ReloadLibraryResponse
	if err := c.client.Call("MediaButler.ReloadLibrary", ReloadLibraryRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Rollback undoes the newest move recorded for a file.
func (c *Client) Rollback(fileHash string, force bool) (*RollbackResponse, error) {
	var resp RollbackResponse
	req := RollbackRequest{FileHash: fileHash, Force: force}
	if err := c.client.Call("MediaButler.Rollback", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CleanupRollback drops rollback points older than maxAgeHours.
func (c *Client) CleanupRollback(maxAgeHours int) (*CleanupRollbackResponse, error) {
	var resp CleanupRollbackResponse
	req := CleanupRollbackRequest{MaxAgeHours: maxAgeHours}
	if err := c.client.Call("MediaButler.CleanupRollback", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListFiles pages through tracked files.
func (c *Client) ListFiles(req ListFilesRequest) (*ListFilesResponse, error) {
	var resp ListFilesResponse
	if err := c.client.Call("MediaButler.ListFiles", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListPending lists files still traveling the pipeline, oldest first.
func (c *Client) ListPending() (*ListPendingResponse, error) {
	var resp ListPendingResponse
	if err := c.client.Call("MediaButler.ListPending", ListPendingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchFiles matches file names against an SQL-like pattern.
func (c *Client) SearchFiles(pattern string) (*SearchFilesResponse, error) {
	var resp SearchFilesResponse
	if err := c.client.Call("MediaButler.SearchFiles", SearchFilesRequest{Pattern: pattern}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ShowFile fetches one file with its processing history.
func (c *Client) ShowFile(hash string) (*ShowFileResponse, error) {
	var resp ShowFileResponse
	if err := c.client.Call("MediaButler.ShowFile", ShowFileRequest{Hash: hash}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Confirm locks in a category for a classified file.
func (c *Client) Confirm(hash, category string) (*FileResponse, error) {
	var resp FileResponse
	if err := c.client.Call("MediaButler.Confirm", ConfirmRequest{Hash: hash, Category: category}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ignore excludes a file from processing.
func (c *Client) Ignore(hash string) (*FileResponse, error) {
	var resp FileResponse
	if err := c.client.Call("MediaButler.Ignore", IgnoreRequest{Hash: hash}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResetFile returns an errored file to the discovery state.
func (c *Client) ResetFile(hash string) (*FileResponse, error) {
	var resp FileResponse
	if err := c.client.Call("MediaButler.ResetFile", ResetFileRequest{Hash: hash}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Organize queues a move for one file.
func (c *Client) Organize(hash, category string) (*OrganizeResponse, error) {
	var resp OrganizeResponse
	if err := c.client.Call("MediaButler.Organize", OrganizeRequest{Hash: hash, Category: category}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Preview dry-runs a move without touching the filesystem.
func (c *Client) Preview(hash, category string) (*PreviewResponse, error) {
	var resp PreviewResponse
	if err := c.client.Call("MediaButler.Preview", PreviewRequest{Hash: hash, Category: category}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BatchSubmit validates and queues a batch of moves.
func (c *Client) BatchSubmit(files []BatchFile) (*BatchSubmitResponse, error) {
	var resp BatchSubmitResponse
	if err := c.client.Call("MediaButler.BatchSubmit", BatchSubmitRequest{Files: files}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BatchStatus fetches one batch by id.
func (c *Client) BatchStatus(id string) (*BatchStatusResponse, error) {
	var resp BatchStatusResponse
	if err := c.client.Call("MediaButler.BatchStatus", BatchStatusRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BatchList lists known batches newest first.
func (c *Client) BatchList() (*BatchListResponse, error) {
	var resp BatchListResponse
	if err := c.client.Call("MediaButler.BatchList", BatchListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BatchCancel stops dispatching a running or pending batch.
func (c *Client) BatchCancel(id string) (*BatchCancelResponse, error) {
	var resp BatchCancelResponse
	if err := c.client.Call("MediaButler.BatchCancel", BatchCancelRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("MediaButler.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
