package utils

import (
	"fmt"

	"lingodoc/config"
	"lingodoc/services/storage"

	"github.com/cloudinary/cloudinary-go/v2"
)

// Cloudinary builds the document storage service from the configured
// Cloudinary credentials.
func Cloudinary() (storage.StorageService, error) {
	cloudName := config.AppConfig.CloudinaryCloudName
	apiKey := config.AppConfig.CloudinaryAPIKey
	apiSecret := config.AppConfig.CloudinaryAPISecret

	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("cloudinary credentials not set in configuration")
	}

	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return storage.NewStorageService(cld, config.AppConfig.CloudinaryFolder), nil
}
