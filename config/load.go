/*
 * MIT License
 *
 * Copyright (c) 2026 The dtest-go Authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Load reads engine configuration from the environment (DTEST_* variables)
// and, if present, from the given file path, layering both over Default().
// An empty path skips the file lookup.
func Load(path string) (*Config, error) {
	c := Default()

	v := viper.New()
	v.SetEnvPrefix("DTEST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("timeout_floor", c.TimeoutFloor)
	v.SetDefault("default_mtu", c.DefaultMTU)
	v.SetDefault("mtu_floor", c.MTUFloor)
	v.SetDefault("super_socket_port_offset", c.SuperSocketPortOffset)
	v.SetDefault("user_message_queue_capacity", c.UserMessageQueueCapacity)
	v.SetDefault("poll_timeout", c.PollTimeout)
	v.SetDefault("kill_grace", c.KillGrace)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	c.TimeoutFloor = v.GetDuration("timeout_floor")
	c.DefaultMTU = v.GetInt("default_mtu")
	c.MTUFloor = v.GetInt("mtu_floor")
	c.SuperSocketPortOffset = v.GetInt("super_socket_port_offset")
	c.UserMessageQueueCapacity = v.GetInt("user_message_queue_capacity")
	c.PollTimeout = v.GetDuration("poll_timeout")
	c.KillGrace = v.GetDuration("kill_grace")

	return c, nil
}
