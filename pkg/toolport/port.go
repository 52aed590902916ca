// Package toolport abstracts invocation of a remote tool or model call
// behind a single port, with concrete WebSocket, HTTP, and stdio
// transports so callers (the skills manager, the tool-invocation
// adapter) never depend on a specific wire protocol.
package toolport

import "context"

// Port calls a named tool on a named server and returns its decoded
// result. server/tool addressing follows the "server:tool" convention
// used by the tool-invocation adapter's endpoint field.
type Port interface {
	CallTool(ctx context.Context, server, tool string, args map[string]interface{}) (map[string]interface{}, error)
	Close() error
}
