/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import "errors"

// Recoverable failures reported by scene operations. A failed operation
// leaves the store unchanged. Wrap with %w and test with errors.Is.
var (
	ErrInvalidObject         = errors.New("invalid object")
	ErrNotFound              = errors.New("object not found")
	ErrIndexOutOfRange       = errors.New("index out of range")
	ErrInsufficientSelection = errors.New("insufficient selection")
	ErrNotAGroup             = errors.New("not a group")
	ErrResourceNotReady      = errors.New("resource not ready")
)
