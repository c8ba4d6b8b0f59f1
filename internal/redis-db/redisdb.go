/*
Copyright 2024 TitanForge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package redis_db

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 500 * time.Millisecond

// Redis wraps the universal client shared by the mailbox, short-term memory,
// agent run locks and the task read cache.
type Redis struct {
	client redis.UniversalClient
}

// ParseRedisURL accepts host:port pairs, redis:// and rediss:// URLs, and
// password-only URLs such as redis://secret@host:6379.
func ParseRedisURL(rawURL string, skipTLSVerify bool) (*redis.Options, error) {
	if isBareAddress(rawURL) {
		return &redis.Options{Addr: rawURL}, nil
	}

	if strings.HasPrefix(rawURL, "redis://") && strings.Contains(rawURL, "@") {
		userinfo, host, _ := strings.Cut(strings.TrimPrefix(rawURL, "redis://"), "@")
		if !strings.Contains(userinfo, ":") {
			rawURL = fmt.Sprintf("redis://:%s@%s", userinfo, host)
		}
	}

	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		opts = manualOptions(rawURL)
	}

	if opts.TLSConfig != nil && skipTLSVerify {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return opts, nil
}

func isBareAddress(addr string) bool {
	return strings.Count(addr, ":") == 1 && !strings.Contains(addr, "@") && !strings.Contains(addr, "//")
}

// manualOptions handles addresses redis.ParseURL rejects, typically passwords with reserved characters.
func manualOptions(rawURL string) *redis.Options {
	host := rawURL
	var password string
	if secret, h, found := strings.Cut(rawURL, "@"); found {
		password = strings.TrimPrefix(secret, "redis://")
		host = h
	}
	opts := &redis.Options{Addr: host, Password: password}
	if strings.Contains(host, "redis.cache.windows.net") {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// NewRedisClient connects to a single instance when one address is given and
// to a cluster otherwise, then pings the server.
func NewRedisClient(addresses []string, skipTLSVerify bool) (*Redis, error) {
	if len(addresses) == 0 {
		return nil, errors.New("redis addresses list cannot be empty")
	}

	var client redis.UniversalClient
	if len(addresses) == 1 {
		opts, err := ParseRedisURL(addresses[0], skipTLSVerify)
		if err != nil {
			return nil, err
		}
		client = redis.NewClient(opts)
	} else {
		clusterOpts, err := clusterOptions(addresses, skipTLSVerify)
		if err != nil {
			return nil, err
		}
		client = redis.NewUniversalClient(clusterOpts)
	}

	r := &Redis{client: client}
	if err := r.Ping(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

func clusterOptions(addresses []string, skipTLSVerify bool) (*redis.UniversalOptions, error) {
	out := &redis.UniversalOptions{}
	useTLS := false
	for _, addr := range addresses {
		opts, err := ParseRedisURL(addr, skipTLSVerify)
		if err != nil {
			return nil, err
		}
		out.Addrs = append(out.Addrs, opts.Addr)
		if out.Password == "" {
			out.Password = opts.Password
		}
		useTLS = useTLS || opts.TLSConfig != nil
	}
	if useTLS {
		out.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: skipTLSVerify}
	}
	return out, nil
}

// NewFromClient wraps an existing client. Used by tests running against miniredis.
func NewFromClient(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Client() redis.UniversalClient {
	return r.client
}

func (r *Redis) Close() error {
	return r.client.Close()
}
