package extractor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_NoToolCalls(t *testing.T) {
	e := NewExtractor()

	for _, text := range []string{
		"",
		"Just a plain answer with no calls.",
		"Mentions </tool_call> closer only.",
		"Math like {x: 1} and <function> words",
	} {
		calls := e.Extract(text)
		assert.Empty(t, calls, "input %q should yield no calls", text)
	}
}

func TestExtract_JSONForm(t *testing.T) {
	e := NewExtractor()

	t.Run("object_arguments_serialized", func(t *testing.T) {
		calls := e.Extract(`<tool_call>{"name":"foo","arguments":{"a":1}}</tool_call>`)
		require.Len(t, calls, 1)
		assert.Equal(t, "foo", calls[0].Function.Name)
		assert.Equal(t, `{"a":1}`, calls[0].Function.Arguments)
		assert.Equal(t, "function", calls[0].Type)
		assert.Equal(t, "qwen3_call_1", calls[0].ID)
	})

	t.Run("string_arguments_pass_through", func(t *testing.T) {
		calls := e.Extract(`<tool_call>{"name":"foo","arguments":"{\"a\":1}"}</tool_call>`)
		require.Len(t, calls, 1)
		assert.Equal(t, `{"a":1}`, calls[0].Function.Arguments)
	})

	t.Run("absent_arguments_default_to_empty_object", func(t *testing.T) {
		calls := e.Extract(`<tool_call>{"name":"ping"}</tool_call>`)
		require.Len(t, calls, 1)
		assert.Equal(t, "{}", calls[0].Function.Arguments)
	})

	t.Run("nested_objects_decode_balanced", func(t *testing.T) {
		calls := e.Extract(`<tool_call>{"name":"deep","arguments":{"a":{"b":{"c":1}},"d":"}"}}</tool_call>`)
		require.Len(t, calls, 1)
		assert.Equal(t, "deep", calls[0].Function.Name)
		assert.Equal(t, `{"a":{"b":{"c":1}},"d":"}"}`, calls[0].Function.Arguments)
	})

	t.Run("structured_arguments_compacted", func(t *testing.T) {
		calls := e.Extract("<tool_call>\n{\n  \"name\": \"fmt\",\n  \"arguments\": { \"a\" : 1 }\n}\n</tool_call>")
		require.Len(t, calls, 1)
		assert.Equal(t, `{"a":1}`, calls[0].Function.Arguments)
	})

	t.Run("missing_name_skipped_order_preserved", func(t *testing.T) {
		text := `<tool_call>{"arguments":{"a":1}}</tool_call>` +
			`<tool_call>{"name":"first"}</tool_call>` +
			`<tool_call>{"name":""}</tool_call>` +
			`<tool_call>{"name":"second"}</tool_call>`
		calls := e.Extract(text)
		require.Len(t, calls, 2)
		assert.Equal(t, "first", calls[0].Function.Name)
		assert.Equal(t, "second", calls[1].Function.Name)
		assert.Equal(t, "qwen3_call_1", calls[0].ID)
		assert.Equal(t, "qwen3_call_2", calls[1].ID)
	})

	t.Run("malformed_candidate_does_not_stop_scan", func(t *testing.T) {
		text := `<tool_call>{"name": broken</tool_call><tool_call>{"name":"ok"}</tool_call>`
		calls := e.Extract(text)
		require.Len(t, calls, 1)
		assert.Equal(t, "ok", calls[0].Function.Name)
	})

	t.Run("non_string_name_skipped", func(t *testing.T) {
		calls := e.Extract(`<tool_call>{"name":42}</tool_call>`)
		assert.Empty(t, calls)
	})

	t.Run("trailing_content_after_object_skipped", func(t *testing.T) {
		calls := e.Extract(`<tool_call>{"name":"a"} extra</tool_call>`)
		assert.Empty(t, calls)
	})
}

func TestExtract_AttributeForm(t *testing.T) {
	e := NewExtractor()

	t.Run("basic", func(t *testing.T) {
		calls := e.Extract(`<tool_call><function=bar><parameter=x>5</parameter></function></tool_call>`)
		require.Len(t, calls, 1)
		assert.Equal(t, "bar", calls[0].Function.Name)
		assert.Equal(t, `{"x":"5"}`, calls[0].Function.Arguments)
		assert.Equal(t, "function", calls[0].Type)
	})

	t.Run("values_trimmed", func(t *testing.T) {
		calls := e.Extract("<tool_call><function=bar><parameter=x>  5 \n</parameter></function></tool_call>")
		require.Len(t, calls, 1)
		assert.Equal(t, `{"x":"5"}`, calls[0].Function.Arguments)
	})

	t.Run("multiple_parameters", func(t *testing.T) {
		calls := e.Extract(`<tool_call><function=get_weather>` +
			`<parameter=city>Paris</parameter>` +
			`<parameter=unit>celsius</parameter>` +
			`</function></tool_call>`)
		require.Len(t, calls, 1)

		var args map[string]string
		require.NoError(t, json.Unmarshal([]byte(calls[0].Function.Arguments), &args))
		assert.Equal(t, map[string]string{"city": "Paris", "unit": "celsius"}, args)
	})

	t.Run("repeated_key_overwrites", func(t *testing.T) {
		calls := e.Extract(`<tool_call><function=f>` +
			`<parameter=x>1</parameter>` +
			`<parameter=x>2</parameter>` +
			`</function></tool_call>`)
		require.Len(t, calls, 1)
		assert.Equal(t, `{"x":"2"}`, calls[0].Function.Arguments)
	})

	t.Run("broken_last_parameter_keeps_earlier_ones", func(t *testing.T) {
		calls := e.Extract(`<tool_call><function=f>` +
			`<parameter=a>1</parameter>` +
			`<parameter=b>2` + // never closes: collection stops, a is kept
			`</function></tool_call>`)
		require.Len(t, calls, 1)
		assert.Equal(t, `{"a":"1"}`, calls[0].Function.Arguments)
	})

	t.Run("broken_middle_parameter_swallows_the_next", func(t *testing.T) {
		// b's missing closer makes the scan consume c's closer as b's,
		// so c never surfaces as its own parameter.
		calls := e.Extract(`<tool_call><function=f>` +
			`<parameter=a>1</parameter>` +
			`<parameter=b>2` +
			`<parameter=c>3</parameter>` +
			`</function></tool_call>`)
		require.Len(t, calls, 1)

		var args map[string]string
		require.NoError(t, json.Unmarshal([]byte(calls[0].Function.Arguments), &args))
		assert.Equal(t, "1", args["a"])
		assert.Equal(t, "2<parameter=c>3", args["b"])
		assert.NotContains(t, args, "c")
	})

	t.Run("no_parameters_empty_object", func(t *testing.T) {
		calls := e.Extract(`<tool_call><function=noop></function></tool_call>`)
		require.Len(t, calls, 1)
		assert.Equal(t, "{}", calls[0].Function.Arguments)
	})

	t.Run("empty_function_name_disqualifies", func(t *testing.T) {
		calls := e.Extract(`<tool_call><function=></function></tool_call>`)
		assert.Empty(t, calls)
	})

	t.Run("missing_function_closer_disqualifies", func(t *testing.T) {
		calls := e.Extract(`<tool_call><function=f><parameter=x>5</parameter></tool_call>`)
		assert.Empty(t, calls)
	})

	t.Run("trailing_unterminated_opener_skipped", func(t *testing.T) {
		text := `<tool_call><function=found><parameter=x>1</parameter></function></tool_call>` +
			` and then <tool_call><function=lost`
		calls := e.Extract(text)
		require.Len(t, calls, 1)
		assert.Equal(t, "found", calls[0].Function.Name)
	})
}

func TestExtract_JSONFormWinsOverAttributeForm(t *testing.T) {
	e := NewExtractor()

	text := `<tool_call>{"name":"json_one"}</tool_call>` +
		`<tool_call><function=attr_one></function></tool_call>`
	calls := e.Extract(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "json_one", calls[0].Function.Name)
}

func TestExtract_MixedProse(t *testing.T) {
	e := NewExtractor()

	text := "Let me check the weather for you.\n" +
		`<tool_call>{"name":"get_weather","arguments":{"city":"Paris"}}</tool_call>` +
		"\nI'll have the answer shortly."
	calls := e.Extract(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "get_weather", calls[0].Function.Name)
	assert.Equal(t, `{"city":"Paris"}`, calls[0].Function.Arguments)
}

func TestExtractWithDiagnostics(t *testing.T) {
	t.Run("json_invalid_candidate_reported", func(t *testing.T) {
		e := NewExtractor()
		calls, diags := e.ExtractWithDiagnostics(`<tool_call>{"name":""}</tool_call>`)
		assert.Empty(t, calls)
		require.Len(t, diags, 1)
		assert.Equal(t, DiagInvalid, diags[0].Kind)
		assert.Equal(t, "json", diags[0].Format)
		assert.Equal(t, 0, diags[0].Offset)
	})

	t.Run("lenient_unclosed_function_is_incomplete", func(t *testing.T) {
		e := NewExtractor()
		calls, diags := e.ExtractWithDiagnostics(`<tool_call><function=f><parameter=x>5</parameter></tool_call>`)
		assert.Empty(t, calls)
		require.Len(t, diags, 1)
		assert.Equal(t, DiagIncomplete, diags[0].Kind)
		assert.Equal(t, "attr", diags[0].Format)
	})

	t.Run("strict_unclosed_function_is_invalid", func(t *testing.T) {
		e := NewExtractor(WithStrict(true))
		calls, diags := e.ExtractWithDiagnostics(`<tool_call><function=f><parameter=x>5</parameter></tool_call>`)
		assert.Empty(t, calls)
		require.Len(t, diags, 1)
		assert.Equal(t, DiagInvalid, diags[0].Kind)
	})

	t.Run("clean_text_has_no_diagnostics", func(t *testing.T) {
		e := NewExtractor()
		calls, diags := e.ExtractWithDiagnostics(`<tool_call>{"name":"ok"}</tool_call>`)
		require.Len(t, calls, 1)
		assert.Empty(t, diags)
	})
}

// The two forms number their calls differently: the JSON form restarts at 1
// on every invocation, while the attribute form counts up across
// invocations for as long as the extractor (and its sequence) lives.
func TestExtract_IDScopeDivergence(t *testing.T) {
	e := NewExtractor()

	jsonText := `<tool_call>{"name":"a"}</tool_call>`
	attrText := `<tool_call><function=a></function></tool_call>`

	first := e.Extract(jsonText)
	second := e.Extract(jsonText)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "qwen3_call_1", first[0].ID)
	assert.Equal(t, "qwen3_call_1", second[0].ID)

	first = e.Extract(attrText)
	second = e.Extract(attrText)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "call_universal_1", first[0].ID)
	assert.Equal(t, "call_universal_2", second[0].ID)
}

func TestExtract_InjectedSequence(t *testing.T) {
	seq := NewSequence("call_universal_")
	a := NewExtractor(WithSequence(seq))
	b := NewExtractor(WithSequence(seq))

	attrText := `<tool_call><function=a></function></tool_call>`

	calls := a.Extract(attrText)
	require.Len(t, calls, 1)
	assert.Equal(t, "call_universal_1", calls[0].ID)

	calls = b.Extract(attrText)
	require.Len(t, calls, 1)
	assert.Equal(t, "call_universal_2", calls[0].ID)
}
