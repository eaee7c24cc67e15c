package schnitz

// Methods served by miners.
const (
	MethodGenerate = "generate"
	MethodGetModel = "get_model"
)

// GenerateRequest asks a miner to answer prompt with the given service/model.
type GenerateRequest struct {
	Prompt  string `json:"prompt"`
	Service string `json:"service"`
	Model   string `json:"model"`
}

type GenerateResponse struct {
	Answer string `json:"answer"`
}

type ModelRequest struct{}

type ModelResponse struct {
	Service string `json:"service"`
	Model   string `json:"model"`
}
