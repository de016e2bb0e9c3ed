package push

import (
	"context"
	"fmt"
)

// PlatformRouter sends each request through the provider registered for
// its platform. Requests without a platform use the fallback.
type PlatformRouter struct {
	providers map[string]PushProvider
	fallback  PushProvider
}

func NewPlatformRouter(fallback PushProvider) *PlatformRouter {
	return &PlatformRouter{
		providers: make(map[string]PushProvider),
		fallback:  fallback,
	}
}

// Register sets the provider for a platform and returns the router.
func (r *PlatformRouter) Register(platform string, provider PushProvider) *PlatformRouter {
	r.providers[platform] = provider
	return r
}

func (r *PlatformRouter) SendNotification(ctx context.Context, request *NotificationRequest) (*NotificationResponse, error) {
	provider, ok := r.providers[request.Platform]
	if !ok {
		provider = r.fallback
	}
	if provider == nil {
		return nil, fmt.Errorf("push: no provider for platform %q", request.Platform)
	}
	return provider.SendNotification(ctx, request)
}
