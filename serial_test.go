// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber_test

import (
	"testing"

	"code.hybscloud.com/fiber"
	"code.hybscloud.com/kont"
)

func TestSerialMonotonic(t *testing.T) {
	l := fiber.NewLoop()
	m := fiber.ManagerOf(l)

	h1 := fiber.Submit(m, kont.Pure(1))
	h2 := fiber.Submit(m, kont.Pure(2))
	h3 := fiber.Submit(m, kont.Pure(3))

	s1, s2, s3 := h1.Serial(), h2.Serial(), h3.Serial()
	if s1 >= s2 {
		t.Fatalf("serials not increasing: %d >= %d", s1, s2)
	}
	if s2 >= s3 {
		t.Fatalf("serials not increasing: %d >= %d", s2, s3)
	}
	l.RunUntil(func() bool { return h1.Done() && h2.Done() && h3.Done() })
}
