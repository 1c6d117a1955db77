package domain

import (
	"context"
)

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetExternalAPIConfig() *ExternalAPIConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}

// VariantAnnotator turns an HGVS expression into a normalized ClinVar annotation
type VariantAnnotator interface {
	Annotate(ctx context.Context, hgvs string) (VariantAnnotation, error)
}

// HGVSResolver resolves a genomic coordinate to an HGVS genomic expression
type HGVSResolver interface {
	Genomic(chrom string, pos int64, ref, alt string) (string, error)
}
