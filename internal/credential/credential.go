// Package credential provides bearer tokens for the remote agent project.
package credential

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// Scope is the token audience for the agent project API.
const Scope = "https://ai.azure.com/.default"

// TokenProvider supplies a bearer token for outgoing requests.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// AzureProvider obtains tokens through the Azure default credential chain.
// Caching and refresh are handled by the underlying identity library.
type AzureProvider struct {
	cred  *azidentity.DefaultAzureCredential
	scope string
}

// NewAzureProvider builds the default credential chain.
func NewAzureProvider() (*AzureProvider, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build azure credential: %w", err)
	}
	return &AzureProvider{cred: cred, scope: Scope}, nil
}

// Token returns a bearer token for the project scope.
func (p *AzureProvider) Token(ctx context.Context) (string, error) {
	tok, err := p.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{p.scope}})
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}
	return tok.Token, nil
}

// StaticProvider returns a fixed token. Used for key-based deployments and
// tests.
type StaticProvider struct {
	Value string
}

func (p StaticProvider) Token(ctx context.Context) (string, error) {
	return p.Value, nil
}
