package envelope

// ErrorKind enumerates the routing/validation failure kinds the router
// projects into a Guidance item (§4.5).
type ErrorKind string

const (
	ActivationNotFound ErrorKind = "activation_not_found"
	MethodNotFound     ErrorKind = "method_not_found"
	InvalidParams      ErrorKind = "invalid_params"
	ExecutionError     ErrorKind = "execution_error"
	HandleNotSupported ErrorKind = "handle_not_supported"
	HandleNotFound     ErrorKind = "handle_not_found"
)

// SuggestionAction discriminates the Suggestion sum type (§3.1).
type SuggestionAction string

const (
	ActionCallRootSchema       SuggestionAction = "call_root_schema"
	ActionCallActivationSchema SuggestionAction = "call_activation_schema"
	ActionTryMethod            SuggestionAction = "try_method"
	ActionCustom               SuggestionAction = "custom"
)

// Suggestion tells the caller how to recover from a shape-correctable
// failure. Exactly one of the action-specific fields is populated,
// matching Action.
type Suggestion struct {
	Action        SuggestionAction `json:"action"`
	Namespace     string           `json:"namespace,omitempty"`
	Method        string           `json:"method,omitempty"`
	ExampleParams any              `json:"example_params,omitempty"`
	Message       string           `json:"message,omitempty"`
}

// CallRootSchemaSuggestion builds the suggestion pointing the caller at the
// root schema method.
func CallRootSchemaSuggestion() Suggestion {
	return Suggestion{Action: ActionCallRootSchema}
}

// CallActivationSchemaSuggestion builds the suggestion pointing the caller
// at a specific activation's schema method.
func CallActivationSchemaSuggestion(namespace string) Suggestion {
	return Suggestion{Action: ActionCallActivationSchema, Namespace: namespace}
}

// TryMethodSuggestion builds the suggestion naming a method to retry,
// optionally with an activation-supplied example payload.
func TryMethodSuggestion(method string, exampleParams any) Suggestion {
	return Suggestion{Action: ActionTryMethod, Method: method, ExampleParams: exampleParams}
}

// CustomSuggestion builds a free-form suggestion, used by
// activation.Activation.CustomGuidance to override the default.
func CustomSuggestion(message string) Suggestion {
	return Suggestion{Action: ActionCustom, Message: message}
}

// RequestKind discriminates the RequestType sum type (§3.1, §4.6).
type RequestKind string

const (
	RequestConfirm RequestKind = "confirm"
	RequestPrompt  RequestKind = "prompt"
	RequestSelect  RequestKind = "select"
	RequestCustom  RequestKind = "custom"
)

// SelectOption is one offering in a Select request.
type SelectOption struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// RequestType is the payload shape of a mid-stream Request item. Exactly
// one of the kind-specific field groups is populated, matching Kind.
type RequestType struct {
	Kind RequestKind `json:"kind"`

	// Confirm / shared with Prompt
	Message string `json:"message,omitempty"`

	// Confirm
	DefaultBool *bool `json:"default_bool,omitempty"`

	// Prompt
	DefaultText *string `json:"default_text,omitempty"`
	Placeholder string  `json:"placeholder,omitempty"`

	// Select
	Options []SelectOption `json:"options,omitempty"`
	Multi   bool           `json:"multi,omitempty"`

	// Custom
	TypeName string `json:"type_name,omitempty"`
	Schema   any    `json:"schema,omitempty"`
}

// Confirm builds a Confirm request type.
func Confirm(message string, def *bool) RequestType {
	return RequestType{Kind: RequestConfirm, Message: message, DefaultBool: def}
}

// Prompt builds a Prompt request type.
func Prompt(message string, def *string, placeholder string) RequestType {
	return RequestType{Kind: RequestPrompt, Message: message, DefaultText: def, Placeholder: placeholder}
}

// Select builds a Select request type.
func Select(message string, options []SelectOption, multi bool) RequestType {
	return RequestType{Kind: RequestSelect, Message: message, Options: options, Multi: multi}
}

// CustomRequest builds a transport-extensible request type.
func CustomRequest(typeName string, schema any) RequestType {
	return RequestType{Kind: RequestCustom, TypeName: typeName, Schema: schema}
}
