// Package led defines the domain types shared between the local stores,
// the backend bridge and the device control sessions: devices, scenes,
// scheduled time tasks and the commands sent to the native BLE backend.
package led

import (
	"encoding/json"
	"fmt"
	"time"
)

// Device is a Bluetooth LED device as reported by the backend.
type Device struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	LocalName string `json:"local_name"`
}

// State is the reported power state of a device.
type State string

const (
	StateOpened State = "opened"
	StateClosed State = "closed"
)

// Command is a device control command.
type Command string

const (
	CommandOpen  Command = "open"
	CommandClose Command = "close"
	CommandReset Command = "reset"
)

// Operation is the action a time task performs when it fires.
type Operation string

const (
	OperationOpen  Operation = "open"
	OperationClose Operation = "close"
)

// SceneType discriminates the scene variants.
type SceneType string

const (
	SceneSolid    SceneType = "solid"
	SceneGradient SceneType = "gradient"
)

// ColorDuration is one stop of a gradient scene.
type ColorDuration struct {
	Color    string  `json:"color"`
	Duration float64 `json:"duration"` // seconds
}

// Scene is a named lighting configuration. It is a tagged union on Type:
// a solid scene carries Color, a gradient scene carries Colors and Linear.
// Use NewSolidScene / NewGradientScene to build valid values.
type Scene struct {
	Name   string
	AutoOn bool
	Type   SceneType

	// Solid variant.
	Color string

	// Gradient variant.
	Colors []ColorDuration
	Linear bool

	// Storage extensions.
	Description string
	IsBuiltin   bool
}

// NewSolidScene builds a solid-color scene.
func NewSolidScene(name, color string, autoOn bool) Scene {
	return Scene{Name: name, AutoOn: autoOn, Type: SceneSolid, Color: color}
}

// NewGradientScene builds a gradient scene.
func NewGradientScene(name string, colors []ColorDuration, linear, autoOn bool) Scene {
	return Scene{Name: name, AutoOn: autoOn, Type: SceneGradient, Colors: colors, Linear: linear}
}

// Validate checks that the scene carries exactly the fields of its variant.
func (s Scene) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scene name is required")
	}
	switch s.Type {
	case SceneSolid:
		if s.Color == "" {
			return fmt.Errorf("solid scene %q has no color", s.Name)
		}
		if len(s.Colors) > 0 || s.Linear {
			return fmt.Errorf("solid scene %q carries gradient fields", s.Name)
		}
	case SceneGradient:
		if s.Color != "" {
			return fmt.Errorf("gradient scene %q carries a solid color", s.Name)
		}
		if len(s.Colors) == 0 {
			return fmt.Errorf("gradient scene %q has no color stops", s.Name)
		}
		for i, stop := range s.Colors {
			if stop.Color == "" {
				return fmt.Errorf("gradient scene %q stop %d has no color", s.Name, i)
			}
			if stop.Duration <= 0 {
				return fmt.Errorf("gradient scene %q stop %d has non-positive duration", s.Name, i)
			}
		}
	default:
		return fmt.Errorf("scene %q has unknown type %q", s.Name, s.Type)
	}
	return nil
}

type solidSceneJSON struct {
	Name        string    `json:"name"`
	AutoOn      bool      `json:"autoOn"`
	Type        SceneType `json:"type"`
	Color       string    `json:"color"`
	Description string    `json:"description,omitempty"`
	IsBuiltin   bool      `json:"isBuiltin,omitempty"`
}

type gradientSceneJSON struct {
	Name        string          `json:"name"`
	AutoOn      bool            `json:"autoOn"`
	Type        SceneType       `json:"type"`
	Colors      []ColorDuration `json:"colors"`
	Linear      bool            `json:"linear"`
	Description string          `json:"description,omitempty"`
	IsBuiltin   bool            `json:"isBuiltin,omitempty"`
}

// sceneJSON is the union of both variants, used for decoding.
type sceneJSON struct {
	Name        string          `json:"name"`
	AutoOn      bool            `json:"autoOn"`
	Type        SceneType       `json:"type"`
	Color       string          `json:"color"`
	Colors      []ColorDuration `json:"colors"`
	Linear      bool            `json:"linear"`
	Description string          `json:"description"`
	IsBuiltin   bool            `json:"isBuiltin"`
}

// MarshalJSON emits only the fields of the active variant.
func (s Scene) MarshalJSON() ([]byte, error) {
	switch s.Type {
	case SceneSolid:
		return json.Marshal(solidSceneJSON{
			Name: s.Name, AutoOn: s.AutoOn, Type: s.Type, Color: s.Color,
			Description: s.Description, IsBuiltin: s.IsBuiltin,
		})
	case SceneGradient:
		return json.Marshal(gradientSceneJSON{
			Name: s.Name, AutoOn: s.AutoOn, Type: s.Type, Colors: s.Colors, Linear: s.Linear,
			Description: s.Description, IsBuiltin: s.IsBuiltin,
		})
	default:
		return nil, fmt.Errorf("scene %q has unknown type %q", s.Name, s.Type)
	}
}

// UnmarshalJSON decodes and validates the variant shape.
func (s *Scene) UnmarshalJSON(data []byte) error {
	var raw sceneJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded := Scene{
		Name:        raw.Name,
		AutoOn:      raw.AutoOn,
		Type:        raw.Type,
		Color:       raw.Color,
		Colors:      raw.Colors,
		Linear:      raw.Linear,
		Description: raw.Description,
		IsBuiltin:   raw.IsBuiltin,
	}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*s = decoded
	return nil
}

// TaskKind discriminates the time task variants.
type TaskKind string

const (
	TaskOnce TaskKind = "once"
	TaskDay  TaskKind = "day"
	TaskWeek TaskKind = "week"
)

// TimeTask is a named scheduled open/close operation. It is a tagged union
// on Kind: a once task carries EndTime, a day task carries At (time-of-day
// used), a week task carries At plus DayOfWeek (1..7, 1 = Monday).
// Use NewOnceTask / NewDayTask / NewWeekTask to build valid values.
type TimeTask struct {
	Name      string
	Operation Operation
	Kind      TaskKind

	EndTime   time.Time // once
	At        time.Time // day, week
	DayOfWeek int       // week
}

// NewOnceTask builds a one-off task firing at endTime.
func NewOnceTask(name string, op Operation, endTime time.Time) TimeTask {
	return TimeTask{Name: name, Operation: op, Kind: TaskOnce, EndTime: endTime}
}

// NewDayTask builds a daily task firing at the time-of-day of at.
func NewDayTask(name string, op Operation, at time.Time) TimeTask {
	return TimeTask{Name: name, Operation: op, Kind: TaskDay, At: at}
}

// NewWeekTask builds a weekly task firing at the time-of-day of at on
// dayOfWeek (1..7, 1 = Monday).
func NewWeekTask(name string, op Operation, at time.Time, dayOfWeek int) TimeTask {
	return TimeTask{Name: name, Operation: op, Kind: TaskWeek, At: at, DayOfWeek: dayOfWeek}
}

// Validate checks that the task carries exactly the fields of its variant.
func (t TimeTask) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("time task name is required")
	}
	if t.Operation != OperationOpen && t.Operation != OperationClose {
		return fmt.Errorf("time task %q has unknown operation %q", t.Name, t.Operation)
	}
	switch t.Kind {
	case TaskOnce:
		if t.EndTime.IsZero() {
			return fmt.Errorf("once task %q has no end time", t.Name)
		}
		if !t.At.IsZero() || t.DayOfWeek != 0 {
			return fmt.Errorf("once task %q carries recurring fields", t.Name)
		}
	case TaskDay:
		if t.At.IsZero() {
			return fmt.Errorf("day task %q has no trigger time", t.Name)
		}
		if !t.EndTime.IsZero() || t.DayOfWeek != 0 {
			return fmt.Errorf("day task %q carries foreign fields", t.Name)
		}
	case TaskWeek:
		if t.At.IsZero() {
			return fmt.Errorf("week task %q has no trigger time", t.Name)
		}
		if t.DayOfWeek < 1 || t.DayOfWeek > 7 {
			return fmt.Errorf("week task %q has day of week %d outside 1..7", t.Name, t.DayOfWeek)
		}
		if !t.EndTime.IsZero() {
			return fmt.Errorf("week task %q carries a one-off end time", t.Name)
		}
	default:
		return fmt.Errorf("time task %q has unknown kind %q", t.Name, t.Kind)
	}
	return nil
}

type onceTaskJSON struct {
	Name      string    `json:"name"`
	Operation Operation `json:"operation"`
	Kind      TaskKind  `json:"kind"`
	EndTime   time.Time `json:"endTime"`
}

type dayTaskJSON struct {
	Name      string    `json:"name"`
	Operation Operation `json:"operation"`
	Kind      TaskKind  `json:"kind"`
	Delay     time.Time `json:"delay"`
}

type weekTaskJSON struct {
	Name      string    `json:"name"`
	Operation Operation `json:"operation"`
	Kind      TaskKind  `json:"kind"`
	Delay     time.Time `json:"delay"`
	DayOfWeek int       `json:"dayOfWeek"`
}

type timeTaskJSON struct {
	Name      string     `json:"name"`
	Operation Operation  `json:"operation"`
	Kind      TaskKind   `json:"kind"`
	EndTime   *time.Time `json:"endTime"`
	Delay     *time.Time `json:"delay"`
	DayOfWeek int        `json:"dayOfWeek"`
}

// MarshalJSON emits only the fields of the active variant. The recurring
// trigger time is serialized under the wire name "delay".
func (t TimeTask) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case TaskOnce:
		return json.Marshal(onceTaskJSON{Name: t.Name, Operation: t.Operation, Kind: t.Kind, EndTime: t.EndTime})
	case TaskDay:
		return json.Marshal(dayTaskJSON{Name: t.Name, Operation: t.Operation, Kind: t.Kind, Delay: t.At})
	case TaskWeek:
		return json.Marshal(weekTaskJSON{Name: t.Name, Operation: t.Operation, Kind: t.Kind, Delay: t.At, DayOfWeek: t.DayOfWeek})
	default:
		return nil, fmt.Errorf("time task %q has unknown kind %q", t.Name, t.Kind)
	}
}

// UnmarshalJSON decodes and validates the variant shape.
func (t *TimeTask) UnmarshalJSON(data []byte) error {
	var raw timeTaskJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded := TimeTask{Name: raw.Name, Operation: raw.Operation, Kind: raw.Kind, DayOfWeek: raw.DayOfWeek}
	if raw.EndTime != nil {
		decoded.EndTime = *raw.EndTime
	}
	if raw.Delay != nil {
		decoded.At = *raw.Delay
	}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*t = decoded
	return nil
}

// TimerCommandType discriminates the set_timer payload variants.
type TimerCommandType string

const (
	TimerAddTask    TimerCommandType = "addTask"
	TimerRemoveTask TimerCommandType = "removeTask"
)

// TimerCommand is the payload of a set_timer call: either a task to add or
// the name of a task to remove. Use AddTask / RemoveTask to build values.
type TimerCommand struct {
	Type     TimerCommandType
	Task     *TimeTask // addTask
	TaskName string    // removeTask
}

// AddTask builds a command installing task on the device.
func AddTask(task TimeTask) TimerCommand {
	return TimerCommand{Type: TimerAddTask, Task: &task}
}

// RemoveTask builds a command removing the named task from the device.
func RemoveTask(name string) TimerCommand {
	return TimerCommand{Type: TimerRemoveTask, TaskName: name}
}

// Validate checks that the command carries exactly the fields of its variant.
func (c TimerCommand) Validate() error {
	switch c.Type {
	case TimerAddTask:
		if c.Task == nil {
			return fmt.Errorf("addTask command has no task")
		}
		if c.TaskName != "" {
			return fmt.Errorf("addTask command carries a removal name")
		}
		return c.Task.Validate()
	case TimerRemoveTask:
		if c.TaskName == "" {
			return fmt.Errorf("removeTask command has no task name")
		}
		if c.Task != nil {
			return fmt.Errorf("removeTask command carries a task")
		}
		return nil
	default:
		return fmt.Errorf("timer command has unknown type %q", c.Type)
	}
}

// MarshalJSON emits {"type":..., "data":...} with the variant payload.
func (c TimerCommand) MarshalJSON() ([]byte, error) {
	switch c.Type {
	case TimerAddTask:
		return json.Marshal(struct {
			Type TimerCommandType `json:"type"`
			Data *TimeTask        `json:"data"`
		}{c.Type, c.Task})
	case TimerRemoveTask:
		return json.Marshal(struct {
			Type TimerCommandType `json:"type"`
			Data string           `json:"data"`
		}{c.Type, c.TaskName})
	default:
		return nil, fmt.Errorf("timer command has unknown type %q", c.Type)
	}
}

// UnmarshalJSON decodes and validates the variant shape.
func (c *TimerCommand) UnmarshalJSON(data []byte) error {
	var head struct {
		Type TimerCommandType `json:"type"`
		Data json.RawMessage  `json:"data"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	decoded := TimerCommand{Type: head.Type}
	switch head.Type {
	case TimerAddTask:
		var task TimeTask
		if err := json.Unmarshal(head.Data, &task); err != nil {
			return err
		}
		decoded.Task = &task
	case TimerRemoveTask:
		if err := json.Unmarshal(head.Data, &decoded.TaskName); err != nil {
			return err
		}
	}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*c = decoded
	return nil
}
