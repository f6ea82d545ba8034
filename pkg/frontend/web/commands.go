package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Command types accepted over the websocket.
const (
	CommandSetAudioDevice = "set_audio_device"
	CommandStopAudio      = "stop_audio"
	CommandGetState       = "get_state"
	CommandGetConfig      = "get_config"
)

const commandTimeout = 2 * time.Second

var errUnknownCommand = errors.New("unknown command")

// Command is a request from the overlay page.
type Command struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SetAudioDeviceRequest is the data of set_audio_device.
type SetAudioDeviceRequest struct {
	Name string `json:"name" validate:"required,max=256"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

func (h *handler) handleCommand(cmd Command, send chan<- any) {
	ctx, cancel := context.WithTimeout(h.ctx, commandTimeout)
	defer cancel()

	switch cmd.Type {
	case CommandSetAudioDevice:
		var req SetAudioDeviceRequest
		if err := decodeAndValidate(cmd, &req); err != nil {
			sendError(send, cmd.Type, err)
			return
		}
		reply(send, cmd.Type, nil, h.backend.SetAudioDevice(ctx, req.Name))
	case CommandStopAudio:
		reply(send, cmd.Type, nil, h.backend.StopAudio(ctx))
	case CommandGetState:
		sendSuccess(send, cmd.Type, h.backend.State())
	case CommandGetConfig:
		sendSuccess(send, cmd.Type, h.cfg)
	default:
		sendError(send, cmd.Type, fmt.Errorf("%w: %q", errUnknownCommand, cmd.Type))
	}
}

func decodeAndValidate[T any](cmd Command, data *T) error {
	if len(cmd.Data) == 0 {
		return errors.New("missing data")
	}
	if err := json.Unmarshal(cmd.Data, data); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(data); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			msgs := make([]string, len(fieldErrors))
			for i, fe := range fieldErrors {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
			}
			return errors.New(strings.Join(msgs, ", "))
		}
		return err
	}
	return nil
}

func reply(send chan<- any, cmdType string, data any, err error) {
	if err != nil {
		sendError(send, cmdType, err)
		return
	}
	sendSuccess(send, cmdType, data)
}

func sendSuccess(send chan<- any, cmdType string, data any) {
	result := map[string]any{
		"type":    cmdType + "_result",
		"success": true,
	}
	if data != nil {
		result["data"] = data
	}
	trySend(send, cmdType, result)
}

func sendError(send chan<- any, cmdType string, err error) {
	trySend(send, cmdType, map[string]any{
		"type":    cmdType + "_result",
		"success": false,
		"error":   err.Error(),
	})
}

func trySend(send chan<- any, cmdType string, msg any) {
	select {
	case send <- msg:
	default:
		slog.Warn("failed to send response: channel full", "type", cmdType)
	}
}
