package embedding

import (
	"context"
	"fmt"

	tokenizer "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/codebuildervaibhav/lecture-grader/internal/apperr"
)

// ONNXConfig locates the MiniLM export and the runtime library.
type ONNXConfig struct {
	ModelPath         string
	TokenizerPath     string
	SharedLibraryPath string
	MaxTokens         int
}

// ONNXEmbedder runs a sentence-transformers model through ONNX Runtime and
// mean-pools the last hidden state.
type ONNXEmbedder struct {
	tok       *tokenizer.Tokenizer
	session   *ort.DynamicAdvancedSession
	maxTokens int
}

// NewONNXEmbedder loads the tokenizer and creates the inference session.
func NewONNXEmbedder(cfg ONNXConfig) (*ONNXEmbedder, error) {
	if cfg.ModelPath == "" || cfg.TokenizerPath == "" {
		return nil, apperr.Newf(apperr.KindConfiguration, "onnx embedder", "model and tokenizer paths are required")
	}

	tok, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, apperr.Newf(apperr.KindConfiguration, "onnx embedder", "failed to load tokenizer: %w", err)
	}

	if cfg.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.SharedLibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, apperr.Newf(apperr.KindConfiguration, "onnx embedder", "failed to initialize ONNX environment: %w", err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()

	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to set graph optimization: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		opts,
	)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, apperr.Newf(apperr.KindConfiguration, "onnx embedder", "failed to create session: %w", err)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}

	return &ONNXEmbedder{tok: tok, session: session, maxTokens: maxTokens}, nil
}

// Embed implements Embedder. Input longer than the model limit is truncated
// silently.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inputs := []tokenizer.EncodeInput{
		tokenizer.NewSingleEncodeInput(tokenizer.NewInputSequence(text)),
	}
	encodings, err := e.tok.EncodeBatch(inputs, true)
	if err != nil {
		return nil, fmt.Errorf("tokenization failed: %w", err)
	}
	if len(encodings) != 1 {
		return nil, fmt.Errorf("tokenizer returned %d encodings", len(encodings))
	}
	enc := encodings[0]

	in := buildInputs(enc.GetIds(), enc.GetAttentionMask(), enc.GetTypeIds(), e.maxTokens)
	seqLen := len(in.ids)
	if seqLen == 0 {
		return nil, fmt.Errorf("tokenizer produced no tokens")
	}

	shape := ort.NewShape(1, int64(seqLen))

	idsTensor, err := ort.NewTensor(shape, in.ids)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()

	maskTensor, err := ort.NewTensor(shape, in.mask)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	typeTensor, err := ort.NewTensor(shape, in.typeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	outputs := make([]ort.Value, 1)
	if err := e.session.Run([]ort.Value{idsTensor, maskTensor, typeTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	hidden, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("output tensor is not float32 type")
	}

	// [1, seq_len, hidden_dim]
	outShape := hidden.GetShape()
	if len(outShape) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", outShape)
	}

	return meanPool(hidden.GetData(), in.mask, int(outShape[1]), int(outShape[2])), nil
}

// Close releases the session and the runtime environment.
func (e *ONNXEmbedder) Close() error {
	if e.session != nil {
		e.session.Destroy()
	}
	return ort.DestroyEnvironment()
}
