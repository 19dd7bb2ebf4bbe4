package main

import (
	"fmt"
	"os"
	
	"gateway/internal/config"
)

func main() {
	fmt.Println("# Gateway Environment Variables")
	fmt.Println()
	fmt.Println("The gateway supports configuration via environment variables.")
	fmt.Println("Environment variables override values from the configuration file.")
	fmt.Println()
	fmt.Println("## Available Environment Variables")
	fmt.Println()
	
	cfg := &config.Config{}
	examples := config.EnvExample(cfg)
	
	for _, example := range examples {
		fmt.Printf("- `%s`\n", example)
	}
	
	fmt.Println()
	fmt.Println("## Examples")
	fmt.Println()
	fmt.Println("```bash")
	fmt.Println("# Override the listen port")
	fmt.Println("export GATEWAY_RUNTIME_SERVER_PORT=9090")
	fmt.Println()
	fmt.Println("# Select a registry backend")
	fmt.Println("export GATEWAY_RUNTIME_REGISTRY_TYPE=redis")
	fmt.Println()
	fmt.Println("# Override the default load balancer")
	fmt.Println("export GATEWAY_RUNTIME_CLIENT_LOADBALANCE=consistent_hash")
	fmt.Println()
	fmt.Println("# Run the gateway with env vars")
	fmt.Println("./gateway -config gateway.yaml")
	fmt.Println("```")
	
	os.Exit(0)
}