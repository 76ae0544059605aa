package ocr

import (
	"context"
	"fmt"
	"os"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// VisionRecognizer implements Recognizer using Google Cloud Vision API.
type VisionRecognizer struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionRecognizer creates a recognizer with credentials from environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS JSON in env.
func NewVisionRecognizer(ctx context.Context) (*VisionRecognizer, error) {
	const op = "NewVisionRecognizer"

	opts, err := CredentialOptions()
	if err != nil {
		return nil, WrapOCRError(op, 0, err, "")
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapOCRError(op, 0, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, 0, err, "failed to create Vision client")
	}

	return &VisionRecognizer{client: client}, nil
}

// Name identifies the engine in logs.
func (v *VisionRecognizer) Name() string {
	return "google-vision"
}

// Recognize runs document text detection on a single page image.
func (v *VisionRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := checkImageSize("VisionRecognize", image); err != nil {
		return "", err
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", fmt.Errorf("Vision API call failed: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", fmt.Errorf("no response from Vision API")
	}

	page := resp.Responses[0]
	if page.Error != nil {
		return "", fmt.Errorf("Vision API error: %s", page.Error.Message)
	}
	if page.FullTextAnnotation == nil {
		return "", nil
	}
	return page.FullTextAnnotation.Text, nil
}

// Close closes the underlying Vision client.
func (v *VisionRecognizer) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

// checkImageSize rejects images the cloud engines would refuse, as
// ErrImageTooLarge so the caller can retry at a lower scale.
func checkImageSize(op string, image []byte) error {
	if len(image) > MaxCloudImageBytes {
		return WrapOCRError(op, 0, ErrImageTooLarge, fmt.Sprintf("image size: %d bytes", len(image)))
	}
	return nil
}

// CredentialOptions prefers inline JSON credentials over a credentials file
// and returns no options when neither is set, leaving the client to
// Application Default Credentials.
func CredentialOptions() ([]option.ClientOption, error) {
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credJSON))}, nil
	}
	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		if _, err := os.Stat(credFile); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingCredentials, err)
		}
		return []option.ClientOption{option.WithCredentialsFile(credFile)}, nil
	}
	return nil, nil
}
