/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/pvm/pkg/views/csvbundle"
	"github.com/carverauto/pvm/pkg/views/script"
)

func TestBuildViewCSVBundle(t *testing.T) {
	dir := t.TempDir()

	v, cl, err := buildView(context.Background(), ViewConfig{Name: "bundle", Type: viewTypeCSVBundle, Dir: dir}, "run-1")
	require.NoError(t, err)
	assert.Nil(t, cl)
	assert.Equal(t, "bundle", v.Name())
	_, ok := v.(*csvbundle.View)
	assert.True(t, ok)
}

func TestBuildViewScriptToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	v, cl, err := buildView(context.Background(), ViewConfig{Name: "script", Type: viewTypeScript, Path: path}, "run-1")
	require.NoError(t, err)
	require.NotNil(t, cl)

	defer cl.Close()

	_, ok := v.(*script.View)
	assert.True(t, ok)
}

func TestBuildViewScriptToStdoutHasNoCloser(t *testing.T) {
	v, cl, err := buildView(context.Background(), ViewConfig{Name: "script", Type: viewTypeScript}, "run-1")
	require.NoError(t, err)
	assert.Nil(t, cl)
	assert.Equal(t, "script", v.Name())
}

func TestBuildViewRejectsUnknownType(t *testing.T) {
	_, _, err := buildView(context.Background(), ViewConfig{Name: "x", Type: "bogus"}, "run-1")
	assert.ErrorIs(t, err, errUnknownViewType)
}

func TestViewTypesListsAllCompiledInKinds(t *testing.T) {
	assert.ElementsMatch(t, []string{"csvbundle", "script", "graphdb", "nats"}, viewTypes)
}
