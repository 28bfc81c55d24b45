/*
Copyright 2024 Blnk Finance Authors.

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

package database

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDataSource_HasNoMutationPath(t *testing.T) {
	store := reflect.TypeOf((*IDataSource)(nil)).Elem()
	allowed := []string{"Append", "List", "Aggregate", "Account", "Create", "Get", "Ping"}

	for i := 0; i < store.NumMethod(); i++ {
		name := store.Method(i).Name
		for _, verb := range []string{"Update", "Delete", "Remove", "Set", "Modify", "Replace"} {
			assert.False(t, strings.HasPrefix(name, verb), "%s must not mutate committed data", name)
		}

		known := false
		for _, prefix := range allowed {
			if strings.HasPrefix(name, prefix) {
				known = true
			}
		}
		assert.True(t, known, "unexpected store method %s", name)
	}
}
