// Package consul registers the service with HashiCorp Consul so gateways can
// discover it. Registration is optional; serverless deployments skip it.
package consul

import (
	consulapi "github.com/hashicorp/consul/api"
)

// Client wraps the Consul API client
type Client struct {
	agent agent
}

// agent is the part of the Consul agent API the registry uses.
type agent interface {
	ServiceRegister(reg *consulapi.AgentServiceRegistration) error
	ServiceDeregister(serviceID string) error
}

// NewClientWithToken creates a new Consul client with ACL token authentication
func NewClientWithToken(addr, token string) (*Client, error) {
	config := consulapi.DefaultConfig()
	config.Address = addr
	if token != "" {
		config.Token = token
	}

	client, err := consulapi.NewClient(config)
	if err != nil {
		return nil, err
	}

	return &Client{agent: client.Agent()}, nil
}
