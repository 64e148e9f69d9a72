package generation

import (
	"encoding/json"
	"strings"

	pkgerrors "github.com/adsparkhq/adspark-backend/pkg/errors"
)

// Instruction templates sent to the prompt service. The model answers with a
// JSON pair: the text-to-image prompt used for synthesis now and the
// image-to-video prompt cached on the job for the optional video stage.
const showcasePrompt = `Create a vibrant product showcase image featuring the uploaded image
in the center, surrounded by dynamic splashes of liquid or relevant material that complement the product.
Use a clean, colorful background to make the product stand out. Include subtle elements related to the product's flavor,
ingredients, or theme floating around to add context and visual interest.
Ensure the product is sharp and in focus, with motion and energy conveyed through the splash effects.
Also give me an image to video prompt for the same in JSON format: {textToImage:'',imageToVideo:''}. Do not add any raw text or comment, just give JSON.`

const avatarShowcasePrompt = `Create a professional product showcase image
featuring the uploaded avatar naturally holding
the uploaded product image in their hands. Make
the product the clear focal point of the scene.
Use a clean, colorful background that highlights the product.
Include subtle floating elements related to the product's flavor,
ingredients, or theme for added context, if relevant. Ensure both the avatar and product are sharp, well-lit, and in focus,
conveying a polished and professional look. Also give me an image to video prompt for the same
in JSON format: {textToImage:'',imageToVideo:''}. Do not add any raw text or comment, just give JSON.`

// PromptPair is the contract the prompt service must honor.
type PromptPair struct {
	TextToImage  string `json:"textToImage"`
	ImageToVideo string `json:"imageToVideo"`
}

// parsePromptPair strips markdown code fences and decodes the strict prompt
// pair. Anything that does not yield both prompts is a contract violation.
func parsePromptPair(content string) (PromptPair, error) {
	cleaned := strings.TrimSpace(content)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var pair PromptPair
	if err := json.Unmarshal([]byte(cleaned), &pair); err != nil {
		return PromptPair{}, pkgerrors.Wrap(pkgerrors.CodeUpstreamContract, err, "decode prompt response")
	}
	pair.TextToImage = strings.TrimSpace(pair.TextToImage)
	pair.ImageToVideo = strings.TrimSpace(pair.ImageToVideo)
	if pair.TextToImage == "" || pair.ImageToVideo == "" {
		return PromptPair{}, pkgerrors.New(pkgerrors.CodeUpstreamContract, "prompt response missing textToImage or imageToVideo")
	}
	return pair, nil
}
