package gemini

import (
	"strings"

	"github.com/teemow/chatscout/internal/runtime"
)

// Wire shapes for the v1beta generateContent API. Function calls carry no
// ids on the wire; the runtime assigns them after decoding.

type generateRequest struct {
	SystemInstruction *wireContent   `json:"system_instruction,omitempty"`
	Contents          []*wireContent `json:"contents"`
	Tools             []wireTool     `json:"tools,omitempty"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text             string                `json:"text,omitempty"`
	FunctionCall     *wireFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *wireFunctionResponse `json:"functionResponse,omitempty"`
}

type wireFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type wireFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response,omitempty"`
}

type wireTool struct {
	FunctionDeclarations []wireDeclaration `json:"function_declarations"`
}

type wireDeclaration struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Parameters  *wireSchema `json:"parameters,omitempty"`
}

type wireSchema struct {
	Type        string                 `json:"type,omitempty"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]*wireSchema `json:"properties,omitempty"`
	Items       *wireSchema            `json:"items,omitempty"`
	Required    []string               `json:"required,omitempty"`
	Enum        []string               `json:"enum,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content *wireContent `json:"content"`
	} `json:"candidates"`
}

func toWireRequest(req *runtime.Request) *generateRequest {
	out := &generateRequest{Contents: make([]*wireContent, 0, len(req.Contents))}

	if req.SystemInstruction != "" {
		out.SystemInstruction = &wireContent{Parts: []wirePart{{Text: req.SystemInstruction}}}
	}
	for _, c := range req.Contents {
		out.Contents = append(out.Contents, toWireContent(c))
	}
	if len(req.Tools) > 0 {
		decls := make([]wireDeclaration, 0, len(req.Tools))
		for _, d := range req.Tools {
			decls = append(decls, wireDeclaration{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  toWireSchema(d.Parameters),
			})
		}
		out.Tools = []wireTool{{FunctionDeclarations: decls}}
	}
	return out
}

func toWireContent(c *runtime.Content) *wireContent {
	wc := &wireContent{Role: c.Role, Parts: make([]wirePart, 0, len(c.Parts))}
	for _, p := range c.Parts {
		switch {
		case p.FunctionCall != nil:
			wc.Parts = append(wc.Parts, wirePart{FunctionCall: &wireFunctionCall{
				Name: p.FunctionCall.Name,
				Args: p.FunctionCall.Args,
			}})
		case p.FunctionResponse != nil:
			wc.Parts = append(wc.Parts, wirePart{FunctionResponse: &wireFunctionResponse{
				Name:     p.FunctionResponse.Name,
				Response: p.FunctionResponse.Response,
			}})
		case p.Text != "":
			wc.Parts = append(wc.Parts, wirePart{Text: p.Text})
		}
	}
	return wc
}

// toWireSchema converts a declaration schema. The API expects its enum-style
// type names, so "object" becomes "OBJECT".
func toWireSchema(s *runtime.Schema) *wireSchema {
	if s == nil {
		return nil
	}
	out := &wireSchema{
		Type:        strings.ToUpper(s.Type),
		Description: s.Description,
		Items:       toWireSchema(s.Items),
		Required:    s.Required,
		Enum:        s.Enum,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*wireSchema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toWireSchema(prop)
		}
	}
	return out
}

// toChunk flattens one streamed response into a runtime chunk, or nil when
// the chunk carries nothing usable.
func toChunk(resp *generateResponse) *runtime.Chunk {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}

	var text strings.Builder
	var calls []*runtime.FunctionCall
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			text.WriteString(p.Text)
		}
		if p.FunctionCall != nil {
			calls = append(calls, &runtime.FunctionCall{
				Name: p.FunctionCall.Name,
				Args: p.FunctionCall.Args,
			})
		}
	}
	if text.Len() == 0 && len(calls) == 0 {
		return nil
	}
	return &runtime.Chunk{Text: text.String(), Calls: calls}
}
