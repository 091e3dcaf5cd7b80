// Package mcptool exposes the IR command surface as MCP tools under the
// self.ir.* namespace. Handlers return their outcome as JSON text content;
// operational failures stay in-band as {"status":"error",...} or
// {"success":false,...} bodies so the assistant can read them, matching the
// firmware's tool contract.
package mcptool

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"voiceboard-go/errcode"
	"voiceboard-go/services/ir"
)

const serverName = "voiceboard-ir"
const serverVersion = "1.0.0"

// Commands is the slice of the IR service the tools call. *ir.Service
// implements it.
type Commands interface {
	StartLearning(name string) error
	StopLearning()
	Learning() bool
	LearnCommand(ctx context.Context, timeoutS int) (ir.Learned, error)
	SaveCode(name string, protocol int, value uint64, bits int) error
	ListCodes() []ir.CodeInfo
	DeleteCode(name string) (bool, error)
	DeleteAllCodes() error
	SendCode(name string) error
	SendRawCode(name string) error
	ExportConstants() (string, error)
}

// Tools binds the MCP handlers to one IR service instance.
type Tools struct {
	svc Commands
	log *slog.Logger
}

func New(svc Commands, log *slog.Logger) *Tools {
	if log == nil {
		log = slog.Default()
	}
	return &Tools{svc: svc, log: log.With("surface", "mcp")}
}

// NewServer builds an MCP server with every IR tool registered.
func NewServer(svc Commands, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	New(svc, log).Register(s)
	return s
}

// Register adds the self.ir.* tool set to s.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("self.ir.start_learning",
		mcp.WithDescription("Start IR learning mode. When enabled, the device will save any IR codes received. "+
			"Use this to learn IR commands from remote controls."),
		mcp.WithString("name",
			mcp.Description("Optional name to store the next received code under. Empty picks an automatic name and keeps learning until stopped.")),
	), t.StartLearning)

	s.AddTool(mcp.NewTool("self.ir.stop_learning",
		mcp.WithDescription("Stop IR learning mode."),
	), t.StopLearning)

	s.AddTool(mcp.NewTool("self.ir.learn_command",
		mcp.WithDescription("Learn an IR command from the IR remote. Arms the receiver, waits for a signal and returns "+
			"the detected protocol, the command code in hex and the raw timing data."),
		mcp.WithNumber("timeout",
			mcp.Description("Timeout in seconds. If no signal is received within this time an error is returned."),
			mcp.DefaultNumber(float64(ir.DefaultLearnTimeoutS)),
			mcp.Min(float64(ir.MinLearnTimeoutS)),
			mcp.Max(float64(ir.MaxLearnTimeoutS))),
	), t.LearnCommand)

	s.AddTool(mcp.NewTool("self.ir.get_learning_status",
		mcp.WithDescription("Get the current status of IR learning mode."),
	), t.GetLearningStatus)

	s.AddTool(mcp.NewTool("self.ir.save_code",
		mcp.WithDescription("Save an IR code with a custom name. Use this after learning an IR code to give it a meaningful name."),
		mcp.WithString("name", mcp.Description("Name to store the code under."), mcp.Required()),
		mcp.WithNumber("protocol", mcp.Description("Protocol number (1=NEC, 2=RC5, 3=RC6, 4=Sony, 5=Samsung, 6=Coolix)."), mcp.Required()),
		mcp.WithString("value", mcp.Description("Command value as a hex string, e.g. 0x20DF10EF."), mcp.Required()),
		mcp.WithNumber("bits", mcp.Description("Significant bit count."), mcp.Required()),
	), t.SaveCode)

	s.AddTool(mcp.NewTool("self.ir.list_codes",
		mcp.WithDescription("List all learned IR codes."),
	), t.ListCodes)

	s.AddTool(mcp.NewTool("self.ir.delete_code",
		mcp.WithDescription("Delete one learned IR code by name."),
		mcp.WithString("name", mcp.Description("Name of the code to delete."), mcp.Required()),
	), t.DeleteCode)

	s.AddTool(mcp.NewTool("self.ir.delete_all_codes",
		mcp.WithDescription("Delete every learned IR code."),
	), t.DeleteAllCodes)

	s.AddTool(mcp.NewTool("self.ir.send_code",
		mcp.WithDescription("Transmit a stored IR code by name. The protocol record is used when present, otherwise the raw capture is replayed."),
		mcp.WithString("name", mcp.Description("Name of the code to send."), mcp.Required()),
	), t.SendCode)

	s.AddTool(mcp.NewTool("self.ir.send_raw_code",
		mcp.WithDescription("Replay the raw timing capture of a stored IR code, ignoring any protocol record."),
		mcp.WithString("name", mcp.Description("Name of the code to send."), mcp.Required()),
	), t.SendRawCode)

	s.AddTool(mcp.NewTool("self.ir.export_constants",
		mcp.WithDescription("Export the stored IR codes as C header constants."),
	), t.ExportConstants)

	t.log.Info("ir tools registered")
}

type statusReply struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func statusText(status, message string) *mcp.CallToolResult {
	b, err := json.Marshal(statusReply{Status: status, Message: message})
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(b))
}

// errorMessage translates error codes into the fixed user-facing texts the
// firmware tools reply with.
func errorMessage(err error) string {
	switch errcode.Of(err) {
	case errcode.IRNotInitialized:
		return "IR receiver not initialized"
	case errcode.NameEmpty:
		return "Code name must not be empty"
	case errcode.NameInvalid:
		return "Code name contains invalid characters"
	case errcode.CapacityExceeded:
		return "Code storage is full"
	case errcode.IRFrameTooLong:
		return "Raw frame too long"
	default:
		return err.Error()
	}
}

func statusError(err error) *mcp.CallToolResult {
	return statusText("error", errorMessage(err))
}

func jsonText(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(b))
}

func (t *Tools) StartLearning(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if err := t.svc.StartLearning(name); err != nil {
		t.log.Warn("start_learning failed", "err", err)
		return statusError(err), nil
	}
	return statusText("learning_mode_enabled",
		"IR learning mode started. Point your remote at the device and press buttons."), nil
}

func (t *Tools) StopLearning(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.svc.StopLearning()
	return statusText("learning_mode_disabled", "IR learning mode stopped."), nil
}

func (t *Tools) LearnCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	timeout := req.GetInt("timeout", ir.DefaultLearnTimeoutS)
	learned, err := t.svc.LearnCommand(ctx, timeout)
	if err != nil {
		msg := errorMessage(err)
		if errcode.Of(err) == errcode.Timeout {
			msg = ir.NoSignalMessage
		}
		return jsonText(ir.LearnInfo{Success: false, Error: msg}), nil
	}
	return jsonText(learned.Info()), nil
}

type learningStatus struct {
	Learning bool `json:"learning_mode"`
}

func (t *Tools) GetLearningStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonText(learningStatus{Learning: t.svc.Learning()}), nil
}

func (t *Tools) SaveCode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	protocol, err := req.RequireInt("protocol")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	valueStr, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bits, err := req.RequireInt("bits")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	value, err := ir.ParseHexValue(valueStr)
	if err != nil {
		return statusText("error", "Invalid value format. Use hex string (e.g., 0xFF00)"), nil
	}
	if err := t.svc.SaveCode(name, protocol, value, bits); err != nil {
		return statusError(err), nil
	}
	return statusText("success", "IR code saved: "+name), nil
}

func (t *Tools) ListCodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	codes := t.svc.ListCodes()
	if codes == nil {
		codes = []ir.CodeInfo{}
	}
	return jsonText(ir.ListReply{Codes: codes}), nil
}

func (t *Tools) DeleteCode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	found, err := t.svc.DeleteCode(name)
	if err != nil {
		return statusError(err), nil
	}
	if !found {
		return statusText("error", "IR code not found: "+name), nil
	}
	return statusText("success", "IR code deleted: "+name), nil
}

func (t *Tools) DeleteAllCodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := t.svc.DeleteAllCodes(); err != nil {
		return statusError(err), nil
	}
	return statusText("success", "All IR codes deleted"), nil
}

func (t *Tools) SendCode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	switch err := t.svc.SendCode(name); errcode.Of(err) {
	case errcode.OK:
		return statusText("success", "IR code sent: "+name), nil
	case errcode.NotFound:
		return statusText("error", "IR code not found: "+name), nil
	default:
		return statusError(err), nil
	}
}

func (t *Tools) SendRawCode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	switch err := t.svc.SendRawCode(name); errcode.Of(err) {
	case errcode.OK:
		return statusText("success", "IR raw code sent: "+name), nil
	case errcode.NotFound:
		return statusText("error", "IR raw code not found: "+name), nil
	default:
		return statusError(err), nil
	}
}

func (t *Tools) ExportConstants(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := t.svc.ExportConstants()
	if err != nil {
		return statusError(err), nil
	}
	return jsonText(ir.ExportReply{Constants: text}), nil
}
