// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package credentials

import "fmt"

func exchangeVador() Option {
	return optionFunc(
		func(c *Cache) error {
			if c.exchange == nil {
				return fmt.Errorf("%w exchange function is missing", ErrInvalidInput)
			}
			return nil
		})
}
