/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

// Observer receives store notifications. ObjectsChanged fires before
// SelectionChanged when one call changes both. layer is -1 when there is no
// single selected object.
type Observer interface {
	ObjectsChanged(objects []*Object)
	SelectionChanged(primary *Object, layer int)
}

// ObserverFuncs adapts plain functions to Observer; nil fields are skipped.
type ObserverFuncs struct {
	OnObjects   func(objects []*Object)
	OnSelection func(primary *Object, layer int)
}

func (f ObserverFuncs) ObjectsChanged(objects []*Object) {
	if f.OnObjects != nil {
		f.OnObjects(objects)
	}
}

func (f ObserverFuncs) SelectionChanged(primary *Object, layer int) {
	if f.OnSelection != nil {
		f.OnSelection(primary, layer)
	}
}
