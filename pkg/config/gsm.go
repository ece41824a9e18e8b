package config

import (
	"context"
	"errors"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

var errEmptySecret = errors.New("secret payload is empty")

// latestSecretVersion names the newest version of secret in projectID
func latestSecretVersion(projectID, secret string) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, secret)
}

// readSecret returns the payload stored under the fully qualified secret version name
func readSecret(ctx context.Context, version string) (string, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create secretmanager client: %w", err)
	}
	defer client.Close()

	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: version})
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", version, err)
	}

	payload := resp.GetPayload().GetData()
	if len(payload) == 0 {
		return "", fmt.Errorf("%s: %w", version, errEmptySecret)
	}

	return string(payload), nil
}
